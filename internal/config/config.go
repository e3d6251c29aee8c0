package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes int64         `yaml:"max_request_bytes"`
	AllowOrigins    []string      `yaml:"allow_origins"`
}

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

// TranscriptConfig selects where transcripts come from.
type TranscriptConfig struct {
	Type     string        `yaml:"type"`
	Language string        `yaml:"language"`
	Dir      string        `yaml:"dir,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ChunkerConfig configures the character window used to split transcripts.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// ProviderConfig holds connection details for an OpenAI-compatible endpoint.
type ProviderConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// EmbeddingConfig selects and configures the embedding provider and gateway.
type EmbeddingConfig struct {
	Type        string          `yaml:"type"`
	Dimension   int             `yaml:"dimension"`
	BatchSize   int             `yaml:"batch_size"`
	Concurrency int             `yaml:"concurrency"`
	OpenAI      *ProviderConfig `yaml:"openai,omitempty"`
}

// ChatConfig selects and configures the chat-completion provider.
type ChatConfig struct {
	Type        string          `yaml:"type"`
	Temperature float64         `yaml:"temperature"`
	TopP        float64         `yaml:"top_p"`
	Timeout     time.Duration   `yaml:"timeout"`
	OpenAI      *ProviderConfig `yaml:"openai,omitempty"`
}

// RetrievalConfig configures top-k retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// SessionsConfig bounds the per-video session cache.
type SessionsConfig struct {
	Capacity      int           `yaml:"capacity"`
	TTL           time.Duration `yaml:"ttl"`
	IngestTimeout time.Duration `yaml:"ingest_timeout"`
}

// RedisConfig enables the shared transcript cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Chat       ChatConfig       `yaml:"chat"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Redis      RedisConfig      `yaml:"redis"`
}

const (
	defaultBaseURL        = "https://models.github.ai/inference"
	defaultAPIKeyEnv      = "GITHUB_TOKEN"
	defaultEmbeddingModel = "text-embedding-3-large"
	defaultChatModel      = "openai/gpt-4.1"
)

// Markers for settings where zero is a legal value, replaced by defaults
// only when the key is absent from the file.
const unsetInt = math.MinInt32

var unsetFloat = math.Inf(-1)

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	cfg := unsetConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault honours YTCHAT_CONFIG, then tries ./config.yaml, then ~/.config/ytchat/config.yaml.
// If none exists, it writes defaults to ~/.config/ytchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	if p := strings.TrimSpace(os.Getenv("YTCHAT_CONFIG")); p != "" {
		cfg, err := Load(p)
		return cfg, p, err
	}
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if c.Chunker.ChunkSize <= 0 {
		return errors.New("chunker.chunk_size must be positive")
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
		return fmt.Errorf("chunker.overlap must be in [0, %d)", c.Chunker.ChunkSize)
	}
	if c.Embedding.BatchSize <= 0 {
		return errors.New("embedding.batch_size must be positive")
	}
	if c.Embedding.Dimension <= 0 {
		return errors.New("embedding.dimension must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("retrieval.top_k must be positive")
	}
	if c.Sessions.Capacity <= 0 {
		return errors.New("sessions.capacity must be positive")
	}
	switch c.Transcript.Type {
	case "youtube":
	case "dir":
		if c.Transcript.Dir == "" {
			return errors.New("transcript.dir is required for the dir fetcher")
		}
	default:
		return fmt.Errorf("unknown transcript source: %s", c.Transcript.Type)
	}
	switch c.Embedding.Type {
	case "openai", "hashing":
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Type)
	}
	switch c.Chat.Type {
	case "openai", "extractive":
	default:
		return fmt.Errorf("unknown chat provider: %s", c.Chat.Type)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ytchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := unsetConfig()
	cfg.Transcript.Type = "youtube"
	cfg.Embedding.Type = "openai"
	cfg.Chat.Type = "openai"
	applyConfigDefaults(cfg)
	return cfg
}

// unsetConfig is the value a file is decoded over, so that explicit zeros
// survive and absent keys keep their markers.
func unsetConfig() *AppConfig {
	return &AppConfig{
		Chunker: ChunkerConfig{Overlap: unsetInt},
		Embedding: EmbeddingConfig{
			OpenAI: &ProviderConfig{MaxRetries: unsetInt},
		},
		Chat: ChatConfig{Temperature: unsetFloat, TopP: unsetFloat},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxRequestBytes == 0 {
		cfg.Server.MaxRequestBytes = 1 << 20
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = []string{"*"}
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Transcript.Type == "" {
		cfg.Transcript.Type = "youtube"
	}
	if cfg.Transcript.Language == "" {
		cfg.Transcript.Language = "en"
	}
	if cfg.Transcript.Timeout == 0 {
		cfg.Transcript.Timeout = 30 * time.Second
	}
	if cfg.Transcript.CacheTTL == 0 {
		cfg.Transcript.CacheTTL = 24 * time.Hour
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.Overlap == unsetInt {
		cfg.Chunker.Overlap = cfg.Chunker.ChunkSize / 5
	}
	if cfg.Embedding.Type == "" {
		cfg.Embedding.Type = "openai"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 3072
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = 4
	}
	if p := cfg.Embedding.OpenAI; p != nil && p.MaxRetries == unsetInt {
		if cfg.Embedding.Type != "openai" && *p == (ProviderConfig{MaxRetries: unsetInt}) {
			cfg.Embedding.OpenAI = nil
		} else {
			p.MaxRetries = 2
		}
	}
	if cfg.Embedding.Type == "openai" {
		if cfg.Embedding.OpenAI == nil {
			cfg.Embedding.OpenAI = &ProviderConfig{MaxRetries: 2}
		}
		applyProviderDefaults(cfg.Embedding.OpenAI, defaultEmbeddingModel, 30*time.Second)
	}
	if cfg.Chat.Type == "" {
		cfg.Chat.Type = "openai"
	}
	if cfg.Chat.Temperature == unsetFloat {
		cfg.Chat.Temperature = 1
	}
	if cfg.Chat.TopP == unsetFloat {
		cfg.Chat.TopP = 1
	}
	if cfg.Chat.Timeout == 0 {
		cfg.Chat.Timeout = 60 * time.Second
	}
	if cfg.Chat.Type == "openai" {
		if cfg.Chat.OpenAI == nil {
			cfg.Chat.OpenAI = &ProviderConfig{}
		}
		applyProviderDefaults(cfg.Chat.OpenAI, defaultChatModel, cfg.Chat.Timeout)
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Sessions.Capacity == 0 {
		cfg.Sessions.Capacity = 256
	}
	if cfg.Sessions.IngestTimeout == 0 {
		cfg.Sessions.IngestTimeout = 5 * time.Minute
	}
}

func applyProviderDefaults(p *ProviderConfig, model string, timeout time.Duration) {
	if p.BaseURL == "" {
		p.BaseURL = defaultBaseURL
	}
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = defaultAPIKeyEnv
	}
	if p.Model == "" {
		p.Model = model
	}
	if p.Timeout == 0 {
		p.Timeout = timeout
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("YTCHAT_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_MODE")); v != "" {
		cfg.Log.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv("YTCHAT_REDIS_ADDR")); v != "" {
		cfg.Redis.Addr = v
	}
}
