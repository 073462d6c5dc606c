// Package chromem implements the VectorIndex port on top of chromem-go,
// an embedded pure-Go vector database.
//
// Each (entity kind, space) pair gets its own collection, so tenant
// isolation is structural: a query only ever opens the collection that
// belongs to the requesting space. Document type and time filters are
// applied on the collection's metadata before ranks are assigned.
package chromem

import (
	"context"
	"fmt"
	"sort"
	"time"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// metadata keys stored alongside each vector.
const (
	metaSpaceID      = "space_id"
	metaDocumentID   = "document_id"
	metaDocumentType = "document_type"
	metaUpdatedAt    = "updated_at"
)

// Index is a chromem-go backed vector index.
type Index struct {
	db *chromemgo.DB
}

// NewIndex opens (or creates) a persistent chromem database at dbPath.
func NewIndex(dbPath string) (*Index, error) {
	db, err := chromemgo.NewPersistentDB(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector database: %w", err)
	}
	return &Index{db: db}, nil
}

// NewMemoryIndex creates a non-persistent chromem database.
func NewMemoryIndex() *Index {
	return &Index{db: chromemgo.NewDB()}
}

// collectionName derives the per-kind, per-space collection name.
func collectionName(kind domain.EntityKind, spaceID string) string {
	return fmt.Sprintf("%s_%s", kind, spaceID)
}

// collection opens or creates the collection for a kind and space.
// Embeddings are always supplied by the caller, so no embedding
// function is configured.
func (x *Index) collection(kind domain.EntityKind, spaceID string) (*chromemgo.Collection, error) {
	meta := map[string]string{"hnsw:space": "cosine"}
	c, err := x.db.GetOrCreateCollection(collectionName(kind, spaceID), meta, nil)
	if err != nil {
		return nil, fmt.Errorf("opening collection: %w", err)
	}
	return c, nil
}

// Add inserts or replaces the vector for an entity.
func (x *Index) Add(
	ctx context.Context, kind domain.EntityKind, entityID string, embedding []float32, meta driven.VectorMetadata,
) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", domain.ErrInvalidInput, entityID)
	}

	c, err := x.collection(kind, meta.SpaceID)
	if err != nil {
		return err
	}

	err = c.AddDocument(ctx, chromemgo.Document{
		ID:        entityID,
		Embedding: embedding,
		Metadata: map[string]string{
			metaSpaceID:      meta.SpaceID,
			metaDocumentID:   meta.DocumentID,
			metaDocumentType: string(meta.DocumentType),
			metaUpdatedAt:    meta.UpdatedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: adding vector: %v", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Delete removes vectors by entity id. Missing ids are not an error.
func (x *Index) Delete(ctx context.Context, kind domain.EntityKind, spaceID string, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}

	c := x.db.GetCollection(collectionName(kind, spaceID), nil)
	if c == nil {
		return nil
	}

	if err := c.Delete(ctx, nil, nil, entityIDs...); err != nil {
		return fmt.Errorf("%w: deleting vectors: %v", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// Search returns the k nearest entities by ascending cosine distance.
// chromem reports similarity, so distance is its complement. The whole
// collection is queried and filtered here because chromem's where
// clause cannot express type sets or time ranges.
func (x *Index) Search(
	ctx context.Context, kind domain.EntityKind, query []float32, k int, filter domain.RankFilter,
) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	c := x.db.GetCollection(collectionName(kind, filter.SpaceID), nil)
	if c == nil {
		return nil, nil
	}

	count := c.Count()
	if count == 0 {
		return nil, nil
	}

	results, err := c.QueryEmbedding(ctx, query, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", domain.ErrVectorIndexUnavailable, err)
	}

	var hits []driven.VectorHit
	for _, r := range results {
		if !resultMatches(r.Metadata, filter) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			EntityID: r.ID,
			Distance: 1 - float64(r.Similarity),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].EntityID < hits[j].EntityID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteSpace removes every vector belonging to a space by dropping its
// collections.
func (x *Index) DeleteSpace(_ context.Context, spaceID string) error {
	for _, kind := range []domain.EntityKind{domain.KindChunk, domain.KindDocument} {
		if err := x.db.DeleteCollection(collectionName(kind, spaceID)); err != nil {
			return fmt.Errorf("%w: deleting collection: %v", domain.ErrVectorIndexUnavailable, err)
		}
	}
	return nil
}

// Close releases resources. chromem persists writes as they happen.
func (x *Index) Close() error {
	return nil
}

// resultMatches applies the document type and time filters to a result's
// metadata.
func resultMatches(meta map[string]string, filter domain.RankFilter) bool {
	if len(filter.DocumentTypes) > 0 {
		found := false
		for _, dt := range filter.DocumentTypes {
			if meta[metaDocumentType] == string(dt) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if !filter.UpdatedAfter.IsZero() || !filter.UpdatedBefore.IsZero() {
		updatedAt, err := time.Parse(time.RFC3339, meta[metaUpdatedAt])
		if err != nil {
			return false
		}
		if !filter.UpdatedAfter.IsZero() && updatedAt.Before(filter.UpdatedAfter) {
			return false
		}
		if !filter.UpdatedBefore.IsZero() && updatedAt.After(filter.UpdatedBefore) {
			return false
		}
	}

	return true
}
