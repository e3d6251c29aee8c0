package vectorstore

import "ytchat/internal/domain"

// Index is a read-only similarity index over the passages of one video.
type Index interface {
	Len() int
	AllZero() bool
	Query(vector []float32, k int) []domain.SearchResult
	Rank(score func(p domain.Passage) float64, k int) []domain.SearchResult
}
