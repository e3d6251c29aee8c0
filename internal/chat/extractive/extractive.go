package extractive

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"ytchat/internal/domain"
)

// NoAnswer is returned when the prompt carries no usable context.
const NoAnswer = "I don't know. The transcript context does not cover this."

// Provider is an offline chat provider. It answers by picking the context
// sentences that best match the question, ranked by word frequency plus
// question overlap. It expects prompts with "Context:" and "Question:" sections.
type Provider struct {
	maxSentences int
	tokenPattern *regexp.Regexp
	sentencePat  *regexp.Regexp
	stopwords    map[string]struct{}
}

// New creates an extractive provider returning at most maxSentences sentences.
func New(maxSentences int) *Provider {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Provider{
		maxSentences: maxSentences,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePat:  regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		stopwords:    defaultStopwords(),
	}
}

func (p *Provider) Name() string { return "extractive" }

func (p *Provider) Complete(ctx context.Context, messages []domain.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var prompt string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			prompt = messages[i].Content
			break
		}
	}
	passages, question := splitPrompt(prompt)
	if strings.TrimSpace(passages) == "" {
		return NoAnswer, nil
	}
	return p.summarize(passages, question), nil
}

// splitPrompt pulls the last "Context:" and "Question:" sections out of a rendered prompt.
func splitPrompt(prompt string) (passages, question string) {
	ci := strings.LastIndex(prompt, "Context:")
	if ci < 0 {
		return prompt, ""
	}
	rest := prompt[ci+len("Context:"):]
	qi := strings.LastIndex(rest, "Question:")
	if qi < 0 {
		return strings.TrimSpace(rest), ""
	}
	return strings.TrimSpace(rest[:qi]), strings.TrimSpace(rest[qi+len("Question:"):])
}

func (p *Provider) summarize(text, question string) string {
	sentences := p.sentencePat.FindAllString(text, -1)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	// Compute word frequencies
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range p.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	qset := map[string]struct{}{}
	for _, tok := range p.tokens(question) {
		qset[tok] = struct{}{}
	}
	type pair struct {
		idx   int
		score float64
	}
	seen := map[string]struct{}{}
	scores := make([]pair, 0, len(sentences))
	for i, sent := range sentences {
		key := strings.TrimSpace(sent)
		// overlapping passages repeat sentences
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		toks := p.tokens(sent)
		sscore := 0.0
		for _, tok := range toks {
			sscore += freq[tok]
			if _, ok := qset[tok]; ok {
				sscore += 1
			}
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores = append(scores, pair{i, sscore})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	n := p.maxSentences
	if n > len(scores) {
		n = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, n)
	for _, idx := range selected {
		out = append(out, strings.TrimSpace(sentences[idx]))
	}
	return strings.Join(out, " ")
}

func (p *Provider) tokens(text string) []string {
	raw := p.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := p.stopwords[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now", "what", "which", "who", "how", "do", "does", "did", "you", "i",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
