// Package driving provides interfaces consumed by user-facing adapters (primary/inbound ports).
package driving

import (
	"context"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

// SearchService performs hybrid search over one search space.
type SearchService interface {
	// Search fuses vector and lexical rankings for the query and returns
	// at most opts.TopK distinct documents, best first. A query deadline
	// should be carried on ctx; exceeding it fails the request rather
	// than returning partial, unordered results. No matches is not an
	// error: it yields an empty, well-formed slice.
	Search(ctx context.Context, spaceID, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
