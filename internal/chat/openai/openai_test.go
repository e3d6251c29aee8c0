package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"ytchat/internal/domain"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	t.Setenv("TEST_CHAT_KEY", "secret")
	c, err := NewWithHTTPClient(Config{
		BaseURL:     "http://upstream/inference",
		APIKeyEnv:   "TEST_CHAT_KEY",
		Model:       "openai/gpt-4.1",
		Temperature: 1,
		TopP:        1,
	}, &http.Client{Transport: rt})
	if err != nil {
		t.Fatalf("NewWithHTTPClient: %v", err)
	}
	return c
}

func TestCompleteSendsMessagesAndSampling(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/inference/chat/completions" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var in chatCompletionRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in.Model != "openai/gpt-4.1" || in.Temperature != 1 || in.TopP != 1 {
			t.Fatalf("request=%+v", in)
		}
		if len(in.Messages) != 2 || in.Messages[0].Role != "system" || in.Messages[1].Role != "user" {
			t.Fatalf("messages=%+v", in.Messages)
		}
		return respond(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"It is about cats."}}]}`), nil
	})
	got, err := c.Complete(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "what is it about?"},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "It is about cats." {
		t.Fatalf("got %q", got)
	}
}

func TestCompleteRejectsUnknownRole(t *testing.T) {
	c := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	_, err := c.Complete(context.Background(), []domain.Message{{Role: "assistant", Content: "x"}})
	if !errors.Is(err, domain.ErrUnsupportedRole) {
		t.Fatalf("err=%v", err)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":"slow"}`, func(err error) bool {
			var h *domain.HTTPError
			return errors.As(err, &h) && h.RateLimited()
		}},
		{"server error", http.StatusBadGateway, ``, func(err error) bool {
			var h *domain.HTTPError
			return errors.As(err, &h) && h.StatusCode == http.StatusBadGateway
		}},
		{"no choices", http.StatusOK, `{"choices":[]}`, func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
		{"not json", http.StatusOK, `<html>`, func(err error) bool { return errors.Is(err, ErrMalformedResponse) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			c := newTestClient(t, func(*http.Request) (*http.Response, error) {
				calls++
				return respond(tt.status, tt.body), nil
			})
			_, err := c.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "q"}})
			if err == nil || !tt.check(err) {
				t.Fatalf("err=%v", err)
			}
			if calls != 1 {
				t.Fatalf("calls=%d", calls)
			}
		})
	}
}
