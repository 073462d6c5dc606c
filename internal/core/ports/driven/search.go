// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

// SearchEngine provides lexical full-text ranking over documents or
// chunks. Backed by SQLite FTS5 with porter stemming; the index is kept
// in sync with the document store by the storage layer itself.
type SearchEngine interface {
	// Search tokenizes the query with the same engine used for stored
	// content and returns matching entities best-first by relevance
	// (BM25-style). Only rows matching at least one query token are
	// candidates; non-matching rows are excluded entirely, not ranked
	// last. An empty or all-stopword query yields an empty result.
	// The filter restricts the candidate universe before ranking.
	Search(ctx context.Context, kind domain.EntityKind, query string, limit int, filter domain.RankFilter) ([]SearchHit, error)
}

// SearchHit represents one lexical match.
type SearchHit struct {
	// EntityID is the matched document or chunk id.
	EntityID string

	// Score is the relevance score, higher is better.
	Score float64
}
