package domain

import "context"

// Passage is a bounded window of transcript text used as a retrieval unit.
// It has no identity beyond its text and its position in the index.
type Passage struct {
	Index int
	Text  string
}

// SearchResult represents a matching passage with a relevance score.
type SearchResult struct {
	Passage Passage
	Score   float64
}

// Role is the closed set of message authors understood by chat providers.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a provider-neutral chat message.
type Message struct {
	Role    Role
	Content string
}

// Chunker splits transcript text into overlapping passages.
type Chunker interface {
	Split(text string) ([]Passage, error)
}

// EmbeddingProvider converts a batch of texts into vectors, 1:1 and in order.
// Implementations talk to a model; they keep no state between calls.
type EmbeddingProvider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatProvider sends one message list to a language model and returns the generated text.
type ChatProvider interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// TranscriptFetcher returns the plain-text transcript of a video in the given language.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID, lang string) (string, error)
}
