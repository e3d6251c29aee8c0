package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ytchat/internal/domain"
	"ytchat/internal/logger"
)

// Config configures the embedding gateway.
type Config struct {
	Dimension   int
	BatchSize   int
	Concurrency int
	Timeout     time.Duration
}

// Report describes how a document embedding run went.
// Degraded counts texts that ended up with the zero vector.
type Report struct {
	Batches         int
	FallbackBatches int
	Degraded        int
}

// Gateway turns texts into vectors through a provider. It never returns an
// error: a failed batch is retried item by item, and an item that still fails
// gets the zero vector of the configured dimension.
type Gateway struct {
	provider    domain.EmbeddingProvider
	dimension   int
	batchSize   int
	concurrency int
	timeout     time.Duration
	log         *logger.Logger
}

func NewGateway(provider domain.EmbeddingProvider, cfg Config, log *logger.Logger) *Gateway {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 3072
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{
		provider:    provider,
		dimension:   cfg.Dimension,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		timeout:     cfg.Timeout,
		log:         log.With("component", "embedding", "provider", provider.Name()),
	}
}

// Dimension returns the length of every vector this gateway produces.
func (g *Gateway) Dimension() int { return g.dimension }

// EmbedDocuments returns one vector per text, in input order.
func (g *Gateway) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, Report) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, Report{}
	}
	nBatches := (len(texts) + g.batchSize - 1) / g.batchSize
	reports := make([]Report, nBatches)

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for b := 0; b < nBatches; b++ {
		b := b
		start := b * g.batchSize
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		eg.Go(func() error {
			reports[b] = g.embedBatch(ctx, texts[start:end], out[start:end])
			return nil
		})
	}
	_ = eg.Wait()

	total := Report{Batches: nBatches}
	for _, r := range reports {
		total.FallbackBatches += r.FallbackBatches
		total.Degraded += r.Degraded
	}
	if total.Degraded > 0 {
		g.log.Warn("degraded document embeddings", "texts", len(texts), "degraded", total.Degraded)
	}
	return out, total
}

// embedBatch fills dst (same length as texts).
func (g *Gateway) embedBatch(ctx context.Context, texts []string, dst [][]float32) Report {
	vecs, err := g.call(ctx, texts)
	if err == nil {
		copy(dst, vecs)
		return Report{}
	}
	g.log.Warn("batch embedding failed, falling back to per-item", "size", len(texts), "error", err)
	rep := Report{FallbackBatches: 1}
	for i, text := range texts {
		vec, degraded := g.EmbedQuery(ctx, text)
		dst[i] = vec
		if degraded {
			rep.Degraded++
		}
	}
	return rep
}

// EmbedQuery embeds a single text. The boolean reports a degraded result: the
// provider failed and the returned vector is all zeros.
func (g *Gateway) EmbedQuery(ctx context.Context, text string) ([]float32, bool) {
	vecs, err := g.call(ctx, []string{text})
	if err != nil {
		g.log.Warn("query embedding failed, using zero vector", "error", err)
		return make([]float32, g.dimension), true
	}
	return vecs[0], false
}

func (g *Gateway) call(ctx context.Context, texts []string) ([][]float32, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	vecs, err := g.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingProvider, len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != g.dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrEmbeddingProvider, i, len(v), g.dimension)
		}
	}
	return vecs, nil
}

// IsZero reports whether v carries no signal.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
