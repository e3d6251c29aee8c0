// Package client talks to the ytchat HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Response is the success body of /process_video and /ask_question.
type Response struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	VideoID  string `json:"video_id,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
}

type Health struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Sessions int    `json:"sessions"`
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return e.Message
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

func (c *Client) ProcessVideo(ctx context.Context, videoURL string) (Response, error) {
	var out Response
	err := c.do(ctx, http.MethodPost, "/process_video", map[string]string{"video_url": videoURL}, &out)
	return out, err
}

func (c *Client) AskQuestion(ctx context.Context, videoURL, question string) (Response, error) {
	var out Response
	err := c.do(ctx, http.MethodPost, "/ask_question", map[string]string{"video_url": videoURL, "question": question}, &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Message string `json:"message"`
			Detail  string `json:"detail"`
			Code    string `json:"code"`
		}
		_ = json.Unmarshal(raw, &e)
		msg := e.Message
		if msg == "" {
			msg = e.Detail
		}
		return &APIError{StatusCode: resp.StatusCode, Code: e.Code, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
