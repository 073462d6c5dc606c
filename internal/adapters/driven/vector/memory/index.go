package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// entry is one stored vector with its filterable metadata.
type entry struct {
	embedding []float32
	meta      driven.VectorMetadata
}

// Index is a brute-force in-memory vector index with exact cosine
// distance. Spaces are isolated by partitioning the maps on space id.
type Index struct {
	mu sync.RWMutex
	// kind -> spaceID -> entityID -> entry
	entries map[domain.EntityKind]map[string]map[string]entry
}

// NewIndex creates an empty in-memory vector index.
func NewIndex() *Index {
	return &Index{
		entries: make(map[domain.EntityKind]map[string]map[string]entry),
	}
}

// Add inserts or replaces the vector for an entity.
func (x *Index) Add(
	_ context.Context, kind domain.EntityKind, entityID string, embedding []float32, meta driven.VectorMetadata,
) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	spaces, ok := x.entries[kind]
	if !ok {
		spaces = make(map[string]map[string]entry)
		x.entries[kind] = spaces
	}
	vectors, ok := spaces[meta.SpaceID]
	if !ok {
		vectors = make(map[string]entry)
		spaces[meta.SpaceID] = vectors
	}

	copied := make([]float32, len(embedding))
	copy(copied, embedding)
	vectors[entityID] = entry{embedding: copied, meta: meta}
	return nil
}

// Delete removes vectors by entity id. Missing ids are ignored.
func (x *Index) Delete(_ context.Context, kind domain.EntityKind, spaceID string, entityIDs []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	vectors := x.entries[kind][spaceID]
	for _, id := range entityIDs {
		delete(vectors, id)
	}
	return nil
}

// Search returns the k nearest entities by ascending cosine distance,
// ties broken by entity id. Only the filter's space is scanned.
func (x *Index) Search(
	_ context.Context, kind domain.EntityKind, query []float32, k int, filter domain.RankFilter,
) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var hits []driven.VectorHit
	for id, e := range x.entries[kind][filter.SpaceID] {
		if !matchesFilter(e.meta, filter) {
			continue
		}
		d, err := cosineDistance(query, e.embedding)
		if err != nil {
			continue
		}
		hits = append(hits, driven.VectorHit{EntityID: id, Distance: d})
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

// DeleteSpace removes every vector belonging to a space.
func (x *Index) DeleteSpace(_ context.Context, spaceID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for kind := range x.entries {
		delete(x.entries[kind], spaceID)
	}
	return nil
}

// Close releases resources. No-op for the in-memory index.
func (x *Index) Close() error {
	return nil
}

// matchesFilter applies the metadata filters. Space isolation is already
// structural; this covers document type and update-time bounds.
func matchesFilter(meta driven.VectorMetadata, filter domain.RankFilter) bool {
	if len(filter.DocumentTypes) > 0 {
		found := false
		for _, dt := range filter.DocumentTypes {
			if meta.DocumentType == dt {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !filter.UpdatedAfter.IsZero() && meta.UpdatedAt.Before(filter.UpdatedAfter) {
		return false
	}
	if !filter.UpdatedBefore.IsZero() && meta.UpdatedAt.After(filter.UpdatedBefore) {
		return false
	}
	return true
}

// cosineDistance is 1 - cosine similarity.
func cosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d vs %d", domain.ErrInvalidInput, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
}
