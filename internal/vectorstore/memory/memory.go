package memory

import (
	"fmt"
	"math"
	"sort"

	"ytchat/internal/domain"
)

// DefaultTopK is used when a query asks for k <= 0.
const DefaultTopK = 4

// Index is an immutable in-memory vector index over the passages of one video.
// Similarity is cosine; zero vectors score 0 against everything. Safe for
// concurrent queries because nothing mutates it after Build.
type Index struct {
	dimension int
	passages  []domain.Passage
	vectors   [][]float32
	norms     []float64
}

// Build pairs passages with vectors 1:1. All vectors must share one dimension.
func Build(passages []domain.Passage, vectors [][]float32) (*Index, error) {
	if len(passages) != len(vectors) {
		return nil, fmt.Errorf("passages and vectors length mismatch: %d != %d", len(passages), len(vectors))
	}
	idx := &Index{
		passages: append([]domain.Passage(nil), passages...),
		vectors:  vectors,
		norms:    make([]float64, len(vectors)),
	}
	for i, v := range vectors {
		if i == 0 {
			idx.dimension = len(v)
		} else if len(v) != idx.dimension {
			return nil, fmt.Errorf("vector dimension mismatch at %d: %d != %d", i, len(v), idx.dimension)
		}
		idx.norms[i] = norm(v)
	}
	return idx, nil
}

// Len returns the number of indexed passages.
func (s *Index) Len() int { return len(s.passages) }

// Dimension returns the vector dimension, 0 for an empty index.
func (s *Index) Dimension() int { return s.dimension }

// Passages returns the indexed passages in build order.
func (s *Index) Passages() []domain.Passage { return s.passages }

// AllZero reports whether no indexed vector carries any signal, which is the
// case when every passage fell back to the zero vector.
func (s *Index) AllZero() bool {
	for _, n := range s.norms {
		if n > 0 {
			return false
		}
	}
	return true
}

// Query returns the k passages most similar to vector, highest first.
// Equal scores keep build order. k larger than Len returns everything.
func (s *Index) Query(vector []float32, k int) []domain.SearchResult {
	if k <= 0 {
		k = DefaultTopK
	}
	qn := norm(vector)
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		scores[i] = cosine(s.vectors[i], s.norms[i], vector, qn)
	}
	return s.top(scores, k)
}

// Rank orders passages by caller-supplied scores using the same top-k and
// tie-break rules as Query.
func (s *Index) Rank(score func(p domain.Passage) float64, k int) []domain.SearchResult {
	if k <= 0 {
		k = DefaultTopK
	}
	scores := make([]float64, len(s.passages))
	for i, p := range s.passages {
		scores[i] = score(p)
	}
	return s.top(scores, k)
}

func (s *Index) top(scores []float64, k int) []domain.SearchResult {
	idxs := argsortDesc(scores)
	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]domain.SearchResult, 0, k)
	for _, j := range idxs[:k] {
		results = append(results, domain.SearchResult{Passage: s.passages[j], Score: scores[j]})
	}
	return results
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 || len(a) != len(b) {
		return 0
	}
	return dot(a, b) / (an * bn)
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}

// argsortDesc returns indexes ordered by descending value; ties keep index order.
func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(i, j int) bool { return vals[idxs[i]] > vals[idxs[j]] })
	return idxs
}
