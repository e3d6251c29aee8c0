package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"ytchat/internal/chat"
	"ytchat/internal/chunker"
	"ytchat/internal/domain"
	"ytchat/internal/embedding"
	"ytchat/internal/service"
	"ytchat/internal/session"
)

type countingFetcher struct {
	calls atomic.Int32
	text  string
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, videoID, lang string) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

// letterEmbedder maps text to letter counts of a, e, s, o.
type letterEmbedder struct {
	calls atomic.Int32
	err   error
}

func (e *letterEmbedder) Name() string { return "letters" }

func (e *letterEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		t = strings.ToLower(t)
		out[i] = []float32{
			float32(strings.Count(t, "a")) + 1,
			float32(strings.Count(t, "e")),
			float32(strings.Count(t, "s")),
			float32(strings.Count(t, "o")),
		}
	}
	return out, nil
}

type fixedChat struct {
	calls atomic.Int32
	reply string
	err   error
}

func (c *fixedChat) Name() string { return "fixed" }

func (c *fixedChat) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	c.calls.Add(1)
	return c.reply, c.err
}

type testEnv struct {
	router   *gin.Engine
	fetcher  *countingFetcher
	embedder *letterEmbedder
	chat     *fixedChat
}

func newTestEnv(t *testing.T, transcript string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		fetcher:  &countingFetcher{text: transcript},
		embedder: &letterEmbedder{},
		chat:     &fixedChat{reply: "This video is about mammals."},
	}
	ch, err := chunker.NewWindowChunker(1000, 200)
	if err != nil {
		t.Fatal(err)
	}
	emb := embedding.NewGateway(env.embedder, embedding.Config{Dimension: 4, BatchSize: 100}, nil)
	synth := service.NewSynthesizer(emb, chat.NewGateway(env.chat, 0, nil), 4, nil)
	reg := session.NewRegistry(env.fetcher, ch, emb, synth, session.Config{}, nil)
	env.router = NewRouter(RouterConfig{Sessions: reg, AllowOrigins: []string{"*"}, MaxRequestBytes: 1 << 10})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

const videoURL = "https://youtube.com/watch?v=abc12345678"

func TestProcessThenAsk(t *testing.T) {
	env := newTestEnv(t, "Cats are mammals. Dogs are mammals too.")

	rec, body := env.do(t, http.MethodPost, "/process_video", VideoRequest{VideoURL: videoURL})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("process: %d %v", rec.Code, body)
	}
	if body["message"] != "Video processed" || body["video_id"] != "abc12345678" {
		t.Fatalf("process body: %v", body)
	}

	rec, body = env.do(t, http.MethodPost, "/process_video", VideoRequest{VideoURL: videoURL})
	if rec.Code != http.StatusOK || body["message"] != "Video ready" {
		t.Fatalf("second process: %d %v", rec.Code, body)
	}
	if body["response"] != "Video already processed and ready for questions" {
		t.Fatalf("second process body: %v", body)
	}

	rec, body = env.do(t, http.MethodPost, "/ask_question", QuestionRequest{VideoURL: videoURL, Question: "What is this about?"})
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("ask: %d %v", rec.Code, body)
	}
	if body["response"] != "This video is about mammals." {
		t.Fatalf("ask response: %v", body["response"])
	}
	if env.fetcher.calls.Load() != 1 {
		t.Fatalf("transcript fetched %d times", env.fetcher.calls.Load())
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestDegradedVideoIsIngestedOnce(t *testing.T) {
	env := newTestEnv(t, "Cats are mammals. Dogs are mammals too.")
	env.embedder.err = errors.New("embedding endpoint down")

	rec, body := env.do(t, http.MethodPost, "/process_video", VideoRequest{VideoURL: videoURL})
	if rec.Code != http.StatusOK || body["message"] != "Video processed" || body["degraded"] != true {
		t.Fatalf("process: %d %v", rec.Code, body)
	}
	rec, body = env.do(t, http.MethodPost, "/process_video", VideoRequest{VideoURL: videoURL})
	if rec.Code != http.StatusOK || body["message"] != "Video ready" || body["degraded"] != true {
		t.Fatalf("second process: %d %v", rec.Code, body)
	}
	for i := 0; i < 2; i++ {
		rec, body = env.do(t, http.MethodPost, "/ask_question", QuestionRequest{VideoURL: videoURL, Question: "Which mammals?"})
		if rec.Code != http.StatusOK || body["response"] != "This video is about mammals." || body["degraded"] != true {
			t.Fatalf("ask %d: %d %v", i, rec.Code, body)
		}
	}
	if env.fetcher.calls.Load() != 1 {
		t.Fatalf("transcript fetched %d times", env.fetcher.calls.Load())
	}
}

func TestAskBuildsSessionOnDemand(t *testing.T) {
	env := newTestEnv(t, "Cats are mammals.")
	rec, body := env.do(t, http.MethodPost, "/ask_question", QuestionRequest{VideoURL: "https://youtu.be/abc12345678", Question: "Cats?"})
	if rec.Code != http.StatusOK || body["response"] != "This video is about mammals." {
		t.Fatalf("ask: %d %v", rec.Code, body)
	}
}

func TestTranscriptQuickAction(t *testing.T) {
	long := strings.Repeat("word ", 300)
	env := newTestEnv(t, long)
	rec, body := env.do(t, http.MethodPost, "/ask_question", QuestionRequest{
		VideoURL: videoURL,
		Question: "Can you provide the transcript of this video?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d %v", rec.Code, body)
	}
	resp, _ := body["response"].(string)
	if !strings.HasPrefix(resp, "Here's the beginning of the transcript:\n\n") ||
		!strings.HasSuffix(resp, "...\n\n(Transcript truncated for readability)") {
		t.Fatalf("unexpected response %q", resp)
	}
	if env.chat.calls.Load() != 0 {
		t.Fatal("transcript quick action must not call the chat model")
	}
}

func TestMalformedURL(t *testing.T) {
	env := newTestEnv(t, "unused")
	for _, path := range []string{"/process_video", "/ask_question"} {
		rec, body := env.do(t, http.MethodPost, path, QuestionRequest{VideoURL: "not a url", Question: "q"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		if body["success"] != false || body["code"] != CodeInvalidVideoReference || body["detail"] != "Invalid YouTube URL" {
			t.Fatalf("%s: body %v", path, body)
		}
	}
	if env.fetcher.calls.Load() != 0 || env.embedder.calls.Load() != 0 || env.chat.calls.Load() != 0 {
		t.Fatal("malformed input must not reach any collaborator")
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		fetchErr   error
		chatErr    error
		question   string
		wantStatus int
		wantCode   string
	}{
		{"captions disabled", domain.ErrCaptionsDisabled, nil, "q", http.StatusNotFound, CodeCaptionsDisabled},
		{"video not found", domain.ErrVideoNotFound, nil, "q", http.StatusNotFound, CodeVideoNotFound},
		{"fetch failure", errors.New("connection reset"), nil, "q", http.StatusInternalServerError, CodeTranscriptUnavailable},
		{"chat failure", nil, errors.New("upstream 503"), "q", http.StatusBadGateway, CodeChatProvider},
		{"empty question", nil, nil, "   ", http.StatusBadRequest, CodeInvalidRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, "Cats are mammals.")
			env.fetcher.err = tc.fetchErr
			env.chat.err = tc.chatErr
			rec, body := env.do(t, http.MethodPost, "/ask_question", QuestionRequest{VideoURL: videoURL, Question: tc.question})
			if rec.Code != tc.wantStatus || body["code"] != tc.wantCode {
				t.Fatalf("got %d %v", rec.Code, body)
			}
			if body["success"] != false || body["response"] != "" {
				t.Fatalf("error body %v", body)
			}
		})
	}
}

func TestBadJSONAndBodyLimit(t *testing.T) {
	env := newTestEnv(t, "Cats are mammals.")
	rec, body := env.do(t, http.MethodPost, "/process_video", "{not json")
	if rec.Code != http.StatusBadRequest || body["code"] != CodeInvalidRequest {
		t.Fatalf("bad json: %d %v", rec.Code, body)
	}
	huge := `{"video_url":"` + strings.Repeat("x", 4096) + `"}`
	rec, body = env.do(t, http.MethodPost, "/process_video", huge)
	if rec.Code != http.StatusRequestEntityTooLarge || body["code"] != CodeRequestTooLarge {
		t.Fatalf("body limit: %d %v", rec.Code, body)
	}
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t, "Cats are mammals.")
	rec, body := env.do(t, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK || body["message"] != "YouTube Chatbot API is running" {
		t.Fatalf("root: %d %v", rec.Code, body)
	}
	env.do(t, http.MethodPost, "/process_video", VideoRequest{VideoURL: videoURL})
	rec, body = env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || body["status"] != "healthy" || body["message"] != "API is running" {
		t.Fatalf("health: %d %v", rec.Code, body)
	}
	if body["sessions"] != float64(1) {
		t.Fatalf("sessions=%v", body["sessions"])
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	env := newTestEnv(t, "Cats are mammals.")
	req := httptest.NewRequest(http.MethodOptions, "/ask_question", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestRecoveryReturnsJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Recovery(nil))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), CodeInternal) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}
