// Package summarizer provides extractive document summarisation.
package summarizer

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
)

// Ensure Frequency implements the interface.
var _ driven.Summariser = (*Frequency)(nil)

// DefaultMaxSentences is the summary length used when the caller passes
// a non-positive value.
const DefaultMaxSentences = 5

// excerptLimit caps the fallback excerpt in runes for content that has
// no recognisable sentences.
const excerptLimit = 600

// Frequency ranks sentences by stopword-filtered token frequency and
// keeps the best ones in their original order. It is deterministic, runs
// without any external service, and implements driven.Summariser.
type Frequency struct {
	sentencePattern *regexp.Regexp
	tokenPattern    *regexp.Regexp
	stopwords       map[string]struct{}
}

// NewFrequency creates a frequency-based extractive summariser.
func NewFrequency() *Frequency {
	return &Frequency{
		sentencePattern: regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:       defaultStopwords(),
	}
}

// Summarise returns at most maxSentences sentences of the text, chosen by
// token-frequency scoring. Text without sentence terminators falls back
// to a leading excerpt.
func (s *Frequency) Summarise(_ context.Context, text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}

	sentences := s.sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		return excerpt(text), nil
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	// Token frequencies across the whole text, stopwords excluded.
	freq := make(map[string]float64)
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}

	type scored struct {
		index int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, sent := range sentences {
		var score float64
		for _, tok := range s.tokens(sent) {
			score += freq[tok]
		}
		ranked[i] = scored{index: i, score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	// Keep the top sentences but emit them in document order.
	keep := make([]int, 0, maxSentences)
	for _, r := range ranked[:maxSentences] {
		keep = append(keep, r.index)
	}
	sort.Ints(keep)

	parts := make([]string, 0, len(keep))
	for _, idx := range keep {
		parts = append(parts, sentences[idx])
	}
	return strings.Join(parts, " "), nil
}

// tokens extracts lowercase word tokens from a sentence.
func (s *Frequency) tokens(sent string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(sent), -1)
	return raw
}

// excerpt returns the leading runes of text, trimmed.
func excerpt(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= excerptLimit {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:excerptLimit]))
}

// defaultStopwords returns the English stopword set shared with the
// lexical query builder.
func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "been", "but", "by",
		"for", "from", "had", "has", "have", "he", "her", "his", "i",
		"in", "is", "it", "its", "of", "on", "or", "she", "that", "the",
		"their", "them", "they", "this", "to", "was", "were", "which",
		"will", "with", "you", "your",
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Stopwords exposes the default English stopword set so query builders
// and the summariser filter with the same list.
func Stopwords() map[string]struct{} {
	return defaultStopwords()
}
