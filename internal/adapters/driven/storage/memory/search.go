package memory

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-engine/internal/summarizer"
)

// Ensure SearchEngine implements the interface.
var _ driven.SearchEngine = (*SearchEngine)(nil)

// SearchEngine is a naive in-memory lexical ranker over a DocumentStore.
// It scores by overlap of query tokens with entity text. Tests use it in
// place of the FTS5 engine.
type SearchEngine struct {
	docs *DocumentStore
}

// NewSearchEngine creates a lexical search engine over the given store.
func NewSearchEngine(docs *DocumentStore) *SearchEngine {
	return &SearchEngine{docs: docs}
}

var tokenRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Search ranks chunks or documents by query token overlap within a space.
func (s *SearchEngine) Search(
	_ context.Context, kind domain.EntityKind, query string, limit int, filter domain.RankFilter,
) ([]driven.SearchHit, error) {
	terms := queryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	s.docs.mu.RLock()
	defer s.docs.mu.RUnlock()

	var hits []driven.SearchHit
	for docID := range s.docs.documents {
		doc := s.docs.documents[docID]
		if doc.SpaceID != filter.SpaceID || !filter.Matches(&doc) {
			continue
		}

		switch kind {
		case domain.KindChunk:
			for _, chunk := range s.docs.chunks[docID] {
				if score := overlapScore(chunk.Content, terms); score > 0 {
					hits = append(hits, driven.SearchHit{EntityID: chunk.ID, Score: score})
				}
			}
		case domain.KindDocument:
			if score := overlapScore(doc.Title+" "+doc.Content, terms); score > 0 {
				hits = append(hits, driven.SearchHit{EntityID: doc.ID, Score: score})
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].EntityID < hits[j].EntityID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// queryTerms lowercases and tokenizes the query, dropping stopwords.
func queryTerms(query string) map[string]struct{} {
	stop := summarizer.Stopwords()
	terms := make(map[string]struct{})
	for _, tok := range tokenRe.FindAllString(strings.ToLower(query), -1) {
		if _, ok := stop[tok]; ok {
			continue
		}
		terms[tok] = struct{}{}
	}
	return terms
}

// overlapScore counts occurrences of query terms in the text.
func overlapScore(text string, terms map[string]struct{}) float64 {
	var score float64
	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		if _, ok := terms[tok]; ok {
			score++
		}
	}
	return score
}
