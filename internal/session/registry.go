// Package session caches one built retrieval pipeline per video.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"ytchat/internal/domain"
	"ytchat/internal/embedding"
	"ytchat/internal/logger"
	"ytchat/internal/service"
	"ytchat/internal/vectorstore"
	"ytchat/internal/vectorstore/memory"
)

const DefaultCapacity = 256

// DocumentEmbedder embeds passages in bulk.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, embedding.Report)
}

// PipelineBuilder binds an answer pipeline to a built index.
type PipelineBuilder interface {
	BuildPipeline(idx vectorstore.Index, transcript string) service.Pipeline
}

// Session is an ingested video. Everything in it is read-only once built.
type Session struct {
	VideoID          string
	Transcript       string
	Passages         []domain.Passage
	Index            *memory.Index
	DegradedPassages int
	CreatedAt        time.Time
	// ApproxBytes estimates vector memory: passages x dimension x 4.
	ApproxBytes int64

	ask service.Pipeline
}

// Ask runs the session's answer pipeline.
func (s *Session) Ask(ctx context.Context, question string) (service.Answer, error) {
	return s.ask(ctx, question)
}

// Degraded reports whether every passage was indexed with the zero vector.
func (s *Session) Degraded() bool {
	return len(s.Passages) > 0 && s.DegradedPassages == len(s.Passages)
}

type Config struct {
	Language     string
	FetchTimeout time.Duration
	// IngestTimeout bounds a whole build, shared by all waiting callers.
	IngestTimeout time.Duration
	Capacity      int
	// TTL of 0 keeps sessions until evicted by capacity.
	TTL time.Duration
}

// Stats are cumulative registry counters.
type Stats struct {
	Sessions int   `json:"sessions"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Builds   int64 `json:"builds"`
	Failures int64 `json:"failures"`
}

// Registry maps video ids to sessions. Concurrent first requests for the
// same id share a single build; failed builds are not cached.
type Registry struct {
	fetcher   domain.TranscriptFetcher
	chunker   domain.Chunker
	embedder  DocumentEmbedder
	pipelines PipelineBuilder
	cfg       Config
	log       *logger.Logger

	cache *expirable.LRU[string, *Session]
	group singleflight.Group

	hits, misses, builds, failures atomic.Int64
}

func NewRegistry(fetcher domain.TranscriptFetcher, chunker domain.Chunker, embedder DocumentEmbedder, pipelines PipelineBuilder, cfg Config, log *logger.Logger) *Registry {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &Registry{
		fetcher:   fetcher,
		chunker:   chunker,
		embedder:  embedder,
		pipelines: pipelines,
		cfg:       cfg,
		log:       log.With("component", "sessions"),
	}
	r.cache = expirable.NewLRU[string, *Session](cfg.Capacity, func(id string, s *Session) {
		r.log.Info("session evicted", "video_id", id, "approx_bytes", s.ApproxBytes)
	}, cfg.TTL)
	return r
}

type buildResult struct {
	session *Session
	created bool
}

// EnsureSession returns the session for videoID, building it on first use.
// created is false when the session was already cached.
func (r *Registry) EnsureSession(ctx context.Context, videoID string) (*Session, bool, error) {
	if s, ok := r.cache.Get(videoID); ok {
		r.hits.Add(1)
		return s, false, nil
	}
	r.misses.Add(1)

	ch := r.group.DoChan(videoID, func() (interface{}, error) {
		if s, ok := r.cache.Get(videoID); ok {
			return buildResult{session: s}, nil
		}
		// the build outlives any single caller so waiters are not failed by
		// the first caller going away
		bctx := context.WithoutCancel(ctx)
		if r.cfg.IngestTimeout > 0 {
			var cancel context.CancelFunc
			bctx, cancel = context.WithTimeout(bctx, r.cfg.IngestTimeout)
			defer cancel()
		}
		s, err := r.build(bctx, videoID)
		if err != nil {
			r.failures.Add(1)
			return nil, err
		}
		r.builds.Add(1)
		if s.Degraded() {
			r.log.Warn("all passages degraded, answers use lexical retrieval", "video_id", videoID)
		}
		r.cache.Add(videoID, s)
		return buildResult{session: s, created: true}, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		br := res.Val.(buildResult)
		return br.session, br.created, nil
	}
}

// Ask answers a question, ingesting the video first when needed.
func (r *Registry) Ask(ctx context.Context, videoID, question string) (service.Answer, error) {
	s, _, err := r.EnsureSession(ctx, videoID)
	if err != nil {
		return service.Answer{}, err
	}
	return s.Ask(ctx, question)
}

// Get returns a cached session without building.
func (r *Registry) Get(videoID string) (*Session, bool) {
	return r.cache.Peek(videoID)
}

func (r *Registry) Len() int { return r.cache.Len() }

func (r *Registry) Stats() Stats {
	return Stats{
		Sessions: r.cache.Len(),
		Hits:     r.hits.Load(),
		Misses:   r.misses.Load(),
		Builds:   r.builds.Load(),
		Failures: r.failures.Load(),
	}
}

func (r *Registry) build(ctx context.Context, videoID string) (*Session, error) {
	start := time.Now()
	log := r.log.With("video_id", videoID)

	text, err := r.fetch(ctx, videoID)
	if err != nil {
		log.Warn("transcript fetch failed", "error", err)
		return nil, err
	}
	passages, err := r.chunker.Split(text)
	if err != nil {
		return nil, fmt.Errorf("split transcript: %w", err)
	}
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, report := r.embedder.EmbedDocuments(ctx, texts)
	idx, err := memory.Build(passages, vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	s := &Session{
		VideoID:          videoID,
		Transcript:       text,
		Passages:         passages,
		Index:            idx,
		DegradedPassages: report.Degraded,
		CreatedAt:        time.Now(),
		ApproxBytes:      int64(idx.Len()) * int64(idx.Dimension()) * 4,
	}
	s.ask = r.pipelines.BuildPipeline(idx, text)

	log.Info("session built",
		"chars", len(text),
		"passages", len(passages),
		"batches", report.Batches,
		"fallback_batches", report.FallbackBatches,
		"degraded", report.Degraded,
		"approx_bytes", s.ApproxBytes,
		"duration_ms", time.Since(start).Milliseconds())
	return s, nil
}

func (r *Registry) fetch(ctx context.Context, videoID string) (string, error) {
	if r.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.FetchTimeout)
		defer cancel()
	}
	text, err := r.fetcher.Fetch(ctx, videoID, r.cfg.Language)
	if err != nil {
		if errors.Is(err, domain.ErrTranscriptUnavailable) || errors.Is(err, domain.ErrInvalidVideoReference) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptUnavailable, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyTranscript
	}
	return text, nil
}
