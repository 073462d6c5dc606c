package driven

import (
	"context"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

// DocumentStore persists documents and chunks, scoped to a search space.
// Backed by SQLite. Every method takes the space id as its first data
// argument and implementations must filter by it before anything else.
type DocumentStore interface {
	// ReplaceDocument atomically upserts a document and replaces all of
	// its chunks (delete-then-insert) in a single transaction. No
	// partial state is externally observable.
	ReplaceDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves a document by id within a space.
	GetDocument(ctx context.Context, spaceID, id string) (*domain.Document, error)

	// GetByUniqueKey retrieves a document by its identity digest.
	GetByUniqueKey(ctx context.Context, spaceID, uniqueKey string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document in position order.
	GetChunks(ctx context.Context, spaceID, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk, verifying it belongs to the
	// space.
	GetChunk(ctx context.Context, spaceID, chunkID string) (*domain.Chunk, error)

	// DeleteDocument removes a document and, by cascade, its chunks.
	DeleteDocument(ctx context.Context, spaceID, id string) error

	// ListDocuments returns all documents in a space. SourceID narrows
	// to one connector when non-empty.
	ListDocuments(ctx context.Context, spaceID, sourceID string) ([]domain.Document, error)
}

// SpaceStore persists search spaces (tenants).
type SpaceStore interface {
	// Save stores or updates a space.
	Save(ctx context.Context, space domain.SearchSpace) error

	// Get retrieves a space by id.
	Get(ctx context.Context, id string) (*domain.SearchSpace, error)

	// List returns all spaces.
	List(ctx context.Context) ([]domain.SearchSpace, error)

	// Delete removes a space and cascades to its documents and chunks.
	Delete(ctx context.Context, id string) error
}
