package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"ytchat/internal/domain"
)

// Client is an OpenAI-compatible embeddings client implementing domain.EmbeddingProvider.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://models.github.ai/inference"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-large"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: t},
		maxRetries: cfg.MaxRetries,
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Client, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.client = httpClient
	}
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one embedding per input text, ordered like the input.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	data, err := json.Marshal(embeddingsRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, err
	}
	url := c.baseURL + "/embeddings"
	for attempt := 0; ; attempt++ {
		payload, wait, err := c.post(ctx, url, data)
		if err == nil {
			return decodeEmbeddings(payload, len(texts))
		}
		if wait < 0 || attempt >= c.maxRetries {
			return nil, err
		}
		if wait == 0 {
			wait = retryDelay(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// post sends one request. A non-negative wait means the failure is retryable;
// a positive wait is what the server asked for via Retry-After.
func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, -1, err
		}
		return nil, 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		var wait time.Duration
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				wait = time.Duration(secs) * time.Second
			}
		}
		return nil, wait, &domain.HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(payload), 512)}
	}
	if resp.StatusCode >= 300 {
		return nil, -1, &domain.HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(payload), 512)}
	}
	return payload, 0, nil
}

func decodeEmbeddings(payload []byte, n int) ([][]float32, error) {
	var out embeddingsResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings: %w", err)
	}
	// some servers omit indices but keep ordering
	positional := true
	for _, d := range out.Data {
		if d.Index != 0 {
			positional = false
			break
		}
	}
	vecs := make([][]float32, n)
	for i, d := range out.Data {
		idx := d.Index
		if positional {
			idx = i
		}
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("embedding index %d out of range", idx)
		}
		vecs[idx] = d.Embedding
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding missing for input %d", i)
		}
	}
	return vecs, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
