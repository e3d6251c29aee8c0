package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("YTCHAT_ADDR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunker.ChunkSize != 1000 || cfg.Chunker.Overlap != 200 {
		t.Fatalf("chunker=%+v", cfg.Chunker)
	}
	if cfg.Embedding.BatchSize != 100 || cfg.Embedding.Dimension != 3072 {
		t.Fatalf("embedding=%+v", cfg.Embedding)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Fatalf("top_k=%d", cfg.Retrieval.TopK)
	}
	if cfg.Chat.OpenAI == nil || cfg.Chat.OpenAI.Model != "openai/gpt-4.1" {
		t.Fatalf("chat=%+v", cfg.Chat.OpenAI)
	}
	if cfg.Embedding.OpenAI.APIKeyEnv != "GITHUB_TOKEN" {
		t.Fatalf("api_key_env=%q", cfg.Embedding.OpenAI.APIKeyEnv)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestLoadYAMLAppliesDefaultsAndDurations(t *testing.T) {
	t.Setenv("YTCHAT_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: ":9000"
transcript:
  type: dir
  dir: ./transcripts
  timeout: 5s
chunker:
  chunk_size: 500
embedding:
  type: hashing
  dimension: 256
chat:
  type: extractive
sessions:
  capacity: 8
  ttl: 1h
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("addr=%q", cfg.Server.Addr)
	}
	if cfg.Transcript.Timeout != 5*time.Second {
		t.Fatalf("timeout=%v", cfg.Transcript.Timeout)
	}
	if cfg.Chunker.Overlap != 100 {
		t.Fatalf("overlap=%d", cfg.Chunker.Overlap)
	}
	if cfg.Sessions.TTL != time.Hour || cfg.Sessions.Capacity != 8 {
		t.Fatalf("sessions=%+v", cfg.Sessions)
	}
	if cfg.Embedding.OpenAI != nil || cfg.Chat.OpenAI != nil {
		t.Fatalf("openai sections should stay nil for local providers")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("YTCHAT_ADDR", "127.0.0.1:7000")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "127.0.0.1:7000" {
		t.Fatalf("addr=%q", cfg.Server.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		want   string
	}{
		{"overlap too large", func(c *AppConfig) { c.Chunker.Overlap = c.Chunker.ChunkSize }, "overlap"},
		{"bad batch", func(c *AppConfig) { c.Embedding.BatchSize = -1 }, "batch_size"},
		{"unknown embedder", func(c *AppConfig) { c.Embedding.Type = "word2vec" }, "embedding provider"},
		{"unknown chat", func(c *AppConfig) { c.Chat.Type = "bard" }, "chat provider"},
		{"dir without path", func(c *AppConfig) { c.Transcript.Type = "dir" }, "transcript.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err=%v want containing %q", err, tt.want)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("YTCHAT_ADDR", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Sessions.TTL = 30 * time.Minute
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Sessions.TTL != 30*time.Minute || got.Embedding.OpenAI.Model != cfg.Embedding.OpenAI.Model {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	t.Setenv("YTCHAT_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
chunker:
  chunk_size: 300
  overlap: 0
embedding:
  type: openai
  openai:
    max_retries: 0
chat:
  type: openai
  temperature: 0
  top_p: 0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chunker.Overlap != 0 {
		t.Fatalf("overlap=%d", cfg.Chunker.Overlap)
	}
	if cfg.Embedding.OpenAI.MaxRetries != 0 {
		t.Fatalf("max_retries=%d", cfg.Embedding.OpenAI.MaxRetries)
	}
	if cfg.Embedding.OpenAI.Model != defaultEmbeddingModel {
		t.Fatalf("model=%q", cfg.Embedding.OpenAI.Model)
	}
	if cfg.Chat.Temperature != 0 || cfg.Chat.TopP != 0 {
		t.Fatalf("chat=%+v", cfg.Chat)
	}
	if cfg.Sessions.IngestTimeout != 5*time.Minute {
		t.Fatalf("ingest_timeout=%v", cfg.Sessions.IngestTimeout)
	}

	out := filepath.Join(t.TempDir(), "saved.yaml")
	if err := Save(out, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatalf("Load saved: %v", err)
	}
	if again.Chunker.Overlap != 0 || again.Embedding.OpenAI.MaxRetries != 0 || again.Chat.Temperature != 0 {
		t.Fatalf("zeros lost after save: %+v", again)
	}
}

func TestLoadAbsentKeysGetDefaults(t *testing.T) {
	t.Setenv("YTCHAT_ADDR", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
embedding:
  openai:
    model: text-embedding-3-small
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Chat.Temperature != 1 || cfg.Chat.TopP != 1 {
		t.Fatalf("chat=%+v", cfg.Chat)
	}
	if cfg.Embedding.OpenAI.MaxRetries != 2 || cfg.Embedding.OpenAI.Model != "text-embedding-3-small" {
		t.Fatalf("embedding.openai=%+v", cfg.Embedding.OpenAI)
	}
	if cfg.Chunker.Overlap != 200 {
		t.Fatalf("overlap=%d", cfg.Chunker.Overlap)
	}
}
