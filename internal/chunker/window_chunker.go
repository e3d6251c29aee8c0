package chunker

import (
	"fmt"

	"ytchat/internal/domain"
)

// WindowChunker splits text with a sliding window of chunkSize characters that
// advances by chunkSize-overlap. Sizes are counted in runes.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

func NewWindowChunker(chunkSize, overlap int) (*WindowChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

func (c *WindowChunker) Split(text string) ([]domain.Passage, error) {
	return Split(text, c.chunkSize, c.overlap)
}

// Split returns the passages of text in source order. Text shorter than
// chunkSize yields a single passage; empty text yields none.
func Split(text string, chunkSize, overlap int) ([]domain.Passage, error) {
	if chunkSize <= 0 || overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("invalid window: size=%d overlap=%d", chunkSize, overlap)
	}
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}
	step := chunkSize - overlap
	passages := make([]domain.Passage, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		passages = append(passages, domain.Passage{Index: len(passages), Text: string(runes[start:end])})
		if end == len(runes) {
			break
		}
	}
	return passages, nil
}
