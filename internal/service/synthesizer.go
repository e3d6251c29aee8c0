package service

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"ytchat/internal/domain"
	"ytchat/internal/embedding"
	"ytchat/internal/logger"
	"ytchat/internal/vectorstore"
	"ytchat/internal/vectorstore/memory"
)

const promptText = `You are a helpful assistant for a YouTube video chatbot.
Answer ONLY from the provided transcript context.
If the context is insufficient, just say you don't know.
Be concise and helpful in your responses.

Context: {{.Context}}

Question: {{.Question}}`

var promptTmpl = template.Must(template.New("prompt").Parse(promptText))

// QueryEmbedder embeds a question. The boolean reports a zero-vector fallback.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, bool)
}

// Completer is a chat gateway.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

// Answer is the outcome of one question.
type Answer struct {
	Text string
	// Degraded is set when retrieval could not use vector similarity.
	Degraded    bool
	QuickAction QuickAction
	Sources     []domain.SearchResult
}

// Pipeline answers questions about one video.
type Pipeline func(ctx context.Context, question string) (Answer, error)

type Synthesizer struct {
	embedder QueryEmbedder
	chat     Completer
	topK     int
	log      *logger.Logger
}

func NewSynthesizer(embedder QueryEmbedder, chat Completer, topK int, log *logger.Logger) *Synthesizer {
	if topK <= 0 {
		topK = memory.DefaultTopK
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Synthesizer{embedder: embedder, chat: chat, topK: topK, log: log.With("component", "synthesizer")}
}

// BuildPipeline binds the synthesizer to one video's index and transcript.
func (s *Synthesizer) BuildPipeline(idx vectorstore.Index, transcript string) Pipeline {
	return func(ctx context.Context, question string) (Answer, error) {
		action, rewritten := MatchQuickAction(question)
		if action == QuickTranscript {
			return Answer{Text: TranscriptExcerpt(transcript), QuickAction: action}, nil
		}
		ans, err := s.answer(ctx, idx, rewritten)
		ans.QuickAction = action
		return ans, err
	}
}

func (s *Synthesizer) answer(ctx context.Context, idx vectorstore.Index, question string) (Answer, error) {
	start := time.Now()
	results, degraded := s.retrieve(ctx, idx, question)

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Passage.Text
	}
	prompt, err := RenderPrompt(strings.Join(texts, "\n\n"), question)
	if err != nil {
		return Answer{}, err
	}
	text, err := s.chat.Complete(ctx, []domain.Message{{Role: domain.RoleUser, Content: prompt}})
	if err != nil {
		return Answer{Degraded: degraded, Sources: results}, err
	}
	s.log.Debug("answered question",
		"passages", len(results),
		"degraded", degraded,
		"duration_ms", time.Since(start).Milliseconds())
	return Answer{Text: text, Degraded: degraded, Sources: results}, nil
}

// retrieve ranks passages by cosine similarity, falling back to token
// overlap when the vectors carry no signal.
func (s *Synthesizer) retrieve(ctx context.Context, idx vectorstore.Index, question string) ([]domain.SearchResult, bool) {
	vec, degraded := s.embedder.EmbedQuery(ctx, question)
	zero := degraded || embedding.IsZero(vec)
	if !zero && !idx.AllZero() {
		return idx.Query(vec, s.topK), false
	}
	s.log.Info("using lexical retrieval", "query_vector_zero", zero)
	return lexicalSearch(idx, question, s.topK), true
}

// RenderPrompt fills the grounding template.
func RenderPrompt(passages, question string) (string, error) {
	var b strings.Builder
	if err := promptTmpl.Execute(&b, struct{ Context, Question string }{passages, question}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return b.String(), nil
}
