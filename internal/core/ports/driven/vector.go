package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

// VectorIndex provides semantic similarity ranking over documents or
// chunks. Implementations must isolate spaces structurally: a search for
// one space can never see another space's vectors.
type VectorIndex interface {
	// Add inserts or replaces the vector for an entity.
	Add(ctx context.Context, kind domain.EntityKind, entityID string, embedding []float32, meta VectorMetadata) error

	// Delete removes vectors by entity id. Missing ids are not an error.
	Delete(ctx context.Context, kind domain.EntityKind, spaceID string, entityIDs []string) error

	// Search returns the nearest entities to the query vector, best
	// first by ascending cosine distance, ties broken by entity id.
	// The filter restricts the candidate universe before ranks are
	// assigned. An empty corpus yields an empty result, not an error.
	Search(ctx context.Context, kind domain.EntityKind, query []float32, k int, filter domain.RankFilter) ([]VectorHit, error)

	// DeleteSpace removes every vector belonging to a space.
	DeleteSpace(ctx context.Context, spaceID string) error

	// Close releases resources.
	Close() error
}

// VectorMetadata carries the filterable attributes stored alongside a
// vector.
type VectorMetadata struct {
	// SpaceID is the owning search space.
	SpaceID string

	// DocumentID is the owning document (equal to the entity id for
	// document vectors).
	DocumentID string

	// DocumentType classifies the owning document.
	DocumentType domain.DocumentType

	// UpdatedAt is the owning document's update time.
	UpdatedAt time.Time
}

// VectorHit represents one similarity match.
type VectorHit struct {
	// EntityID is the matched document or chunk id.
	EntityID string

	// Distance is the cosine distance to the query, lower is better.
	Distance float64
}
