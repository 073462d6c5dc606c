package driving

import (
	"context"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

// IngestionService populates a search space from connector output.
type IngestionService interface {
	// IngestBatch processes source items sequentially. Unchanged items
	// (same content hash) are skipped without writes; changed or new
	// items are chunked, embedded and persisted atomically per item.
	// A failing item is recorded and never aborts its siblings. The
	// returned report is valid even when an error (e.g. cancellation)
	// is also returned.
	IngestBatch(ctx context.Context, spaceID, sourceID string, items []domain.SourceItem) (*domain.IngestReport, error)

	// RemoveItem deletes the document ingested for a source item,
	// cascading to its chunks and vectors. Unknown items are a no-op.
	RemoveItem(ctx context.Context, spaceID string, docType domain.DocumentType, stableID string) error

	// RemoveSource deletes every document a connector produced in a
	// space, used when the connector is disconnected.
	RemoveSource(ctx context.Context, spaceID, sourceID string) error
}
