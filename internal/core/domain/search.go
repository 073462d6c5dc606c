package domain

import "time"

// EntityKind selects the granularity a ranker operates over. The vector
// and lexical rankers run the same algorithm for both kinds; only the
// backing rows differ.
type EntityKind string

const (
	// KindDocument ranks document rows by their summary.
	KindDocument EntityKind = "document"
	// KindChunk ranks individual chunk rows.
	KindChunk EntityKind = "chunk"
)

// Granularity selects the shape of hybrid search results.
type Granularity string

const (
	// GranularityChunks fuses chunk-level rankings and aggregates them
	// into document results.
	GranularityChunks Granularity = "chunks"
	// GranularityDocuments ranks document rows directly and skips the
	// aggregation step.
	GranularityDocuments Granularity = "documents"
)

// RankFilter restricts the candidate universe before any ranking math.
// SpaceID is mandatory and always applied first: tenant isolation is a
// security invariant, not an optimization. The remaining fields are
// optional pre-filters; they are never applied after fusion, which would
// silently shrink results below the requested size.
type RankFilter struct {
	// SpaceID is the search space to rank within.
	SpaceID string

	// DocumentTypes restricts candidates to the given types, when set.
	DocumentTypes []DocumentType

	// UpdatedAfter excludes documents updated before this instant, when set.
	UpdatedAfter time.Time

	// UpdatedBefore excludes documents updated after this instant, when set.
	UpdatedBefore time.Time
}

// Matches reports whether a document passes the optional filters.
// SpaceID is checked separately by every store query.
func (f RankFilter) Matches(doc *Document) bool {
	if len(f.DocumentTypes) > 0 {
		found := false
		for _, t := range f.DocumentTypes {
			if doc.DocumentType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.UpdatedAfter.IsZero() && doc.UpdatedAt.Before(f.UpdatedAfter) {
		return false
	}
	if !f.UpdatedBefore.IsZero() && doc.UpdatedAt.After(f.UpdatedBefore) {
		return false
	}
	return true
}

// RankedEntity is one entry of a sub-ranker's output: an entity id with
// its 1-based rank (rank 1 = best).
type RankedEntity struct {
	// EntityID identifies the ranked document or chunk.
	EntityID string

	// Rank is the 1-based position in the sub-ranker's ordering.
	Rank int
}

// FusedEntity is one entry of the fused ranking produced by reciprocal
// rank fusion.
type FusedEntity struct {
	// EntityID identifies the document or chunk.
	EntityID string

	// Score is the summed reciprocal-rank contribution.
	Score float64
}

// SearchOptions configures a hybrid search request.
type SearchOptions struct {
	// TopK is the maximum number of distinct documents to return.
	TopK int

	// Granularity selects chunk-level fusion (default) or direct
	// document-level ranking.
	Granularity Granularity

	// DocumentTypes restricts the candidate universe, when set.
	DocumentTypes []DocumentType

	// UpdatedAfter and UpdatedBefore bound the candidate universe by
	// document update time, when set.
	UpdatedAfter  time.Time
	UpdatedBefore time.Time

	// CandidateMultiplier scales how many candidates each sub-ranker
	// produces relative to TopK, giving the fusion step overlap to work
	// with. Zero means the configured default (2).
	CandidateMultiplier int

	// TextOnly requests explicit lexical-only search, the degraded mode
	// for when embeddings are down. It is never entered silently.
	TextOnly bool
}

// ChunkRef is a citation-addressable chunk inside a search result.
type ChunkRef struct {
	// ChunkID is the chunk's stable identifier, usable as [chunk:<id>].
	ChunkID string

	// Content is the chunk text.
	Content string
}

// SearchResult is one document-level hit of a hybrid search.
type SearchResult struct {
	// DocumentID identifies the matched document.
	DocumentID string

	// Title is the document title.
	Title string

	// DocumentType classifies the document.
	DocumentType DocumentType

	// Score is the fused relevance score of the document's best entity.
	Score float64

	// Chunks holds all of the document's chunks in position order, each
	// retaining its original id for precise citation.
	Chunks []ChunkRef

	// Content is the concatenation of all chunk contents in stable
	// order, for downstream re-ranking and LLM consumption.
	Content string

	// Metadata contains the document's source metadata.
	Metadata map[string]any
}
