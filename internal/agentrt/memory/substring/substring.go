// Package substring implements the built-in stateless memory scorer:
// a tokenizing substring/overlap ranker with no index to maintain.
package substring

import "strings"

// Scorer is a stateless Scorer implementation; Index and Remove are
// no-ops since scoring recomputes from the raw chunk every time.
type Scorer struct{}

// New creates a substring Scorer.
func New() *Scorer { return &Scorer{} }

func (s *Scorer) Name() string { return "substring" }

// tokenize lowercases and splits on runs of non-alphanumeric
// characters, keeping tokens of length >= 2 — matching the
// tokenization rule shared with the bm25 scorer for consistency.
func tokenize(text string) []string {
	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() >= 2 {
			tokens = append(tokens, current.String())
		}
		current.Reset()
	}
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// Score returns the fraction of query tokens that appear as a
// substring of chunk, in [0, 1].
func (s *Scorer) Score(chunk, query string) float64 {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return 0
	}
	lowerChunk := strings.ToLower(chunk)
	matched := 0
	for _, token := range queryTokens {
		if strings.Contains(lowerChunk, token) {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// ScoreBatch scores query against each chunk independently.
func (s *Scorer) ScoreBatch(chunks []string, query string) []float64 {
	out := make([]float64, len(chunks))
	for i, chunk := range chunks {
		out[i] = s.Score(chunk, query)
	}
	return out
}

// Index is a no-op: the substring scorer holds no index.
func (s *Scorer) Index(key, text string) {}

// Remove is a no-op: the substring scorer holds no index.
func (s *Scorer) Remove(key string) {}
