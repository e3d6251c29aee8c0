package service

import (
	"math"
	"regexp"
	"strings"

	"ytchat/internal/domain"
	"ytchat/internal/vectorstore"
)

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

func lexicalSearch(idx vectorstore.Index, query string, topK int) []domain.SearchResult {
	qset := toTokenSet(query)
	return idx.Rank(func(p domain.Passage) float64 {
		return overlapOchiai(qset, p.Text)
	}, topK)
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over distinct tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	stoks := unicodeWordRe.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(stoks))
	inter := 0
	for _, t := range stoks {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
