// Package app assembles the server from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"ytchat/internal/chat"
	"ytchat/internal/chat/extractive"
	chatopenai "ytchat/internal/chat/openai"
	"ytchat/internal/chunker"
	"ytchat/internal/config"
	"ytchat/internal/domain"
	"ytchat/internal/embedding"
	"ytchat/internal/embedding/hashing"
	embedopenai "ytchat/internal/embedding/openai"
	"ytchat/internal/httpapi"
	"ytchat/internal/logger"
	"ytchat/internal/service"
	"ytchat/internal/session"
	"ytchat/internal/transcript/dir"
	"ytchat/internal/transcript/rediscache"
	"ytchat/internal/transcript/youtube"
)

type App struct {
	Config   *config.AppConfig
	Log      *logger.Logger
	Sessions *session.Registry
	Router   *gin.Engine

	server *httpapi.Server
	redis  *redis.Client
}

// New wires every component described by cfg.
func New(cfg *config.AppConfig, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log}

	fetcher, err := a.transcriptFetcher()
	if err != nil {
		return nil, err
	}
	ch, err := chunker.NewWindowChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}
	embProvider, embTimeout, err := newEmbeddingProvider(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	emb := embedding.NewGateway(embProvider, embedding.Config{
		Dimension:   cfg.Embedding.Dimension,
		BatchSize:   cfg.Embedding.BatchSize,
		Concurrency: cfg.Embedding.Concurrency,
		Timeout:     embTimeout,
	}, log)
	chatProv, err := newChatProvider(cfg.Chat)
	if err != nil {
		return nil, err
	}
	synth := service.NewSynthesizer(emb, chat.NewGateway(chatProv, cfg.Chat.Timeout, log), cfg.Retrieval.TopK, log)

	a.Sessions = session.NewRegistry(fetcher, ch, emb, synth, session.Config{
		Language:      cfg.Transcript.Language,
		FetchTimeout:  cfg.Transcript.Timeout,
		IngestTimeout: cfg.Sessions.IngestTimeout,
		Capacity:      cfg.Sessions.Capacity,
		TTL:           cfg.Sessions.TTL,
	}, log)

	if cfg.Log.Mode == "production" || cfg.Log.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	a.Router = httpapi.NewRouter(httpapi.RouterConfig{
		Sessions:        a.Sessions,
		Log:             log,
		AllowOrigins:    cfg.Server.AllowOrigins,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
	})
	a.server = httpapi.NewServer(cfg.Server.Addr, a.Router, cfg.Server.ReadTimeout, cfg.Server.ShutdownTimeout, log)

	log.Info("app initialized",
		"transcript", cfg.Transcript.Type,
		"embedding", embProvider.Name(),
		"chat", chatProv.Name(),
		"redis", cfg.Redis.Addr != "",
		"chunk_size", cfg.Chunker.ChunkSize,
		"overlap", cfg.Chunker.Overlap,
		"top_k", cfg.Retrieval.TopK)
	return a, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()
	return a.server.Run(ctx)
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Log.Warn("redis close failed", "error", err)
		}
	}
}

func (a *App) transcriptFetcher() (domain.TranscriptFetcher, error) {
	cfg := a.Config
	var f domain.TranscriptFetcher
	switch cfg.Transcript.Type {
	case "youtube", "":
		f = youtube.NewFetcher(youtube.Config{Timeout: cfg.Transcript.Timeout})
	case "dir":
		f = dir.NewFetcher(cfg.Transcript.Dir)
	default:
		return nil, fmt.Errorf("unknown transcript source: %s", cfg.Transcript.Type)
	}
	if cfg.Redis.Addr == "" {
		return f, nil
	}
	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.redis.Ping(ctx).Err(); err != nil {
		// the cache bypasses a dead redis, so this is not fatal
		a.Log.Warn("redis unreachable, transcript cache will be bypassed", "addr", cfg.Redis.Addr, "error", err)
	}
	return rediscache.New(f, a.redis, cfg.Transcript.CacheTTL, a.Log), nil
}

func newEmbeddingProvider(cfg config.EmbeddingConfig) (domain.EmbeddingProvider, time.Duration, error) {
	switch cfg.Type {
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, 0, fmt.Errorf("openai embedding config missing")
		}
		c, err := embedopenai.NewClient(embedopenai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return c, cfg.OpenAI.Timeout, nil
	case "hashing":
		return hashing.NewEmbedder(cfg.Dimension), 0, nil
	default:
		return nil, 0, fmt.Errorf("unknown embedding provider: %s", cfg.Type)
	}
}

func newChatProvider(cfg config.ChatConfig) (domain.ChatProvider, error) {
	switch cfg.Type {
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai chat config missing")
		}
		c, err := chatopenai.NewClient(chatopenai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			Timeout:     cfg.OpenAI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("openai chat init failed: %w", err)
		}
		return c, nil
	case "extractive":
		return extractive.New(0), nil
	default:
		return nil, fmt.Errorf("unknown chat provider: %s", cfg.Type)
	}
}
