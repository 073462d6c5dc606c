package summarizer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarise_ShortTextKeptWhole(t *testing.T) {
	s := NewFrequency()

	out, err := s.Summarise(context.Background(), "First sentence. Second sentence.", 5)

	require.NoError(t, err)
	assert.Equal(t, "First sentence. Second sentence.", out)
}

func TestSummarise_CapsSentenceCount(t *testing.T) {
	s := NewFrequency()
	text := "Alpha beta gamma. Delta epsilon zeta. Eta theta iota. Kappa lambda mu. Nu xi omicron. Pi rho sigma."

	out, err := s.Summarise(context.Background(), text, 2)

	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "."))
}

func TestSummarise_PreservesDocumentOrder(t *testing.T) {
	s := NewFrequency()
	// "retrieval" dominates the frequency table, so the sentences carrying
	// it win regardless of where they sit in the text.
	text := "Retrieval systems rank retrieval results. Unrelated filler here. " +
		"More filler follows now. Good retrieval needs good retrieval signals."

	out, err := s.Summarise(context.Background(), text, 2)

	require.NoError(t, err)
	first := strings.Index(out, "Retrieval systems")
	second := strings.Index(out, "Good retrieval")
	require.GreaterOrEqual(t, first, 0)
	require.Greater(t, second, first)
	assert.NotContains(t, out, "filler")
}

func TestSummarise_ExcerptFallback(t *testing.T) {
	s := NewFrequency()
	noTerminators := strings.Repeat("word ", 200)

	out, err := s.Summarise(context.Background(), noTerminators, 3)

	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.LessOrEqual(t, len([]rune(out)), excerptLimit)
}

func TestSummarise_EmptyText(t *testing.T) {
	s := NewFrequency()

	out, err := s.Summarise(context.Background(), "", 3)

	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarise_NonPositiveCapUsesDefault(t *testing.T) {
	s := NewFrequency()
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString("Sentence number something goes here. ")
	}

	out, err := s.Summarise(context.Background(), b.String(), 0)

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSentences, strings.Count(out, "."))
}

func TestSummarise_Deterministic(t *testing.T) {
	s := NewFrequency()
	text := "One two three. Four five six. Seven eight nine. Ten eleven twelve. " +
		"Thirteen fourteen fifteen. Sixteen seventeen eighteen."

	first, err := s.Summarise(context.Background(), text, 3)
	require.NoError(t, err)
	second, err := s.Summarise(context.Background(), text, 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStopwords_SharedSet(t *testing.T) {
	stop := Stopwords()

	_, ok := stop["the"]
	assert.True(t, ok)
	_, ok = stop["retrieval"]
	assert.False(t, ok)
}
