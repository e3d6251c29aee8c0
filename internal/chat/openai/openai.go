package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ytchat/internal/domain"
)

// Client is an OpenAI-compatible chat completions client implementing domain.ChatProvider.
// Sampling parameters are fixed at construction.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	topP        float64
	client      *http.Client
}

// Config configures the chat completions client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// NewClient creates a new chat client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://models.github.ai/inference"
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4.1"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      key,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		client:      &http.Client{Timeout: t},
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

func (c *Client) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ErrMalformedResponse is returned when the provider answers 2xx without usable content.
var ErrMalformedResponse = errors.New("malformed chat completion response")

func convertMessages(msgs []domain.Message) ([]chatMessage, error) {
	out := make([]chatMessage, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case domain.RoleSystem:
			out[i] = chatMessage{Role: "system", Content: m.Content}
		case domain.RoleUser:
			out[i] = chatMessage{Role: "user", Content: m.Content}
		default:
			return nil, fmt.Errorf("%w: %q at position %d", domain.ErrUnsupportedRole, m.Role, i)
		}
	}
	return out, nil
}

// Complete makes exactly one request and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	wire, err := convertMessages(messages)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    wire,
		Temperature: c.temperature,
		TopP:        c.topP,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		body := string(payload)
		if len(body) > 512 {
			body = body[:512]
		}
		return "", &domain.HTTPError{StatusCode: resp.StatusCode, Body: body}
	}
	var out chatCompletionResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return out.Choices[0].Message.Content, nil
}
