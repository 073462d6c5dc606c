package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
)

func addVector(t *testing.T, x *Index, spaceID, entityID string, vec []float32) {
	t.Helper()
	err := x.Add(context.Background(), domain.KindChunk, entityID, vec, driven.VectorMetadata{
		SpaceID:      spaceID,
		DocumentID:   "doc-" + entityID,
		DocumentType: domain.DocumentTypeNote,
		UpdatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestAdd_RejectsEmptyEmbedding(t *testing.T) {
	x := NewIndex()

	err := x.Add(context.Background(), domain.KindChunk, "c1", nil, driven.VectorMetadata{SpaceID: "s1"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_OrdersByCosineDistance(t *testing.T) {
	x := NewIndex()
	addVector(t, x, "s1", "exact", []float32{1, 0})
	addVector(t, x, "s1", "close", []float32{1, 0.2})
	addVector(t, x, "s1", "orthogonal", []float32{0, 1})

	hits, err := x.Search(context.Background(), domain.KindChunk, []float32{1, 0}, 10,
		domain.RankFilter{SpaceID: "s1"})

	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "exact", hits[0].EntityID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	assert.Equal(t, "close", hits[1].EntityID)
	assert.Equal(t, "orthogonal", hits[2].EntityID)
	assert.InDelta(t, 1, hits[2].Distance, 1e-9)
}

func TestSearch_TieBreaksOnEntityID(t *testing.T) {
	x := NewIndex()
	// Parallel vectors of different magnitude have identical cosine distance.
	addVector(t, x, "s1", "b", []float32{2, 0})
	addVector(t, x, "s1", "a", []float32{1, 0})

	hits, err := x.Search(context.Background(), domain.KindChunk, []float32{1, 0}, 10,
		domain.RankFilter{SpaceID: "s1"})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].EntityID)
	assert.Equal(t, "b", hits[1].EntityID)
}

func TestSearch_CapsAtK(t *testing.T) {
	x := NewIndex()
	addVector(t, x, "s1", "c1", []float32{1, 0})
	addVector(t, x, "s1", "c2", []float32{0.9, 0.1})
	addVector(t, x, "s1", "c3", []float32{0, 1})

	hits, err := x.Search(context.Background(), domain.KindChunk, []float32{1, 0}, 2,
		domain.RankFilter{SpaceID: "s1"})

	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearch_SpaceIsolation(t *testing.T) {
	x := NewIndex()
	addVector(t, x, "s1", "mine", []float32{1, 0})
	addVector(t, x, "s2", "theirs", []float32{1, 0})

	hits, err := x.Search(context.Background(), domain.KindChunk, []float32{1, 0}, 10,
		domain.RankFilter{SpaceID: "s1"})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "mine", hits[0].EntityID)
}

func TestSearch_KindIsolation(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	meta := driven.VectorMetadata{SpaceID: "s1", DocumentType: domain.DocumentTypeNote}
	require.NoError(t, x.Add(ctx, domain.KindChunk, "c1", []float32{1, 0}, meta))
	require.NoError(t, x.Add(ctx, domain.KindDocument, "d1", []float32{1, 0}, meta))

	hits, err := x.Search(ctx, domain.KindDocument, []float32{1, 0}, 10,
		domain.RankFilter{SpaceID: "s1"})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d1", hits[0].EntityID)
}

func TestSearch_DocumentTypeFilter(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Add(ctx, domain.KindChunk, "note-chunk", []float32{1, 0},
		driven.VectorMetadata{SpaceID: "s1", DocumentType: domain.DocumentTypeNote}))
	require.NoError(t, x.Add(ctx, domain.KindChunk, "email-chunk", []float32{1, 0},
		driven.VectorMetadata{SpaceID: "s1", DocumentType: domain.DocumentTypeEmail}))

	hits, err := x.Search(ctx, domain.KindChunk, []float32{1, 0}, 10, domain.RankFilter{
		SpaceID:       "s1",
		DocumentTypes: []domain.DocumentType{domain.DocumentTypeEmail},
	})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "email-chunk", hits[0].EntityID)
}

func TestSearch_UpdatedTimeBounds(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	require.NoError(t, x.Add(ctx, domain.KindChunk, "old", []float32{1, 0},
		driven.VectorMetadata{SpaceID: "s1", UpdatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}))
	require.NoError(t, x.Add(ctx, domain.KindChunk, "new", []float32{1, 0},
		driven.VectorMetadata{SpaceID: "s1", UpdatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}))

	hits, err := x.Search(ctx, domain.KindChunk, []float32{1, 0}, 10, domain.RankFilter{
		SpaceID:      "s1",
		UpdatedAfter: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].EntityID)

	hits, err = x.Search(ctx, domain.KindChunk, []float32{1, 0}, 10, domain.RankFilter{
		SpaceID:       "s1",
		UpdatedBefore: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "old", hits[0].EntityID)
}

func TestSearch_SkipsMismatchedDimensions(t *testing.T) {
	x := NewIndex()
	addVector(t, x, "s1", "2d", []float32{1, 0})
	addVector(t, x, "s1", "3d", []float32{1, 0, 0})

	hits, err := x.Search(context.Background(), domain.KindChunk, []float32{1, 0}, 10,
		domain.RankFilter{SpaceID: "s1"})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "2d", hits[0].EntityID)
}

func TestDelete_RemovesOnlyNamedIDs(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	addVector(t, x, "s1", "keep", []float32{1, 0})
	addVector(t, x, "s1", "drop", []float32{1, 0})

	require.NoError(t, x.Delete(ctx, domain.KindChunk, "s1", []string{"drop", "never-existed"}))

	hits, err := x.Search(ctx, domain.KindChunk, []float32{1, 0}, 10, domain.RankFilter{SpaceID: "s1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "keep", hits[0].EntityID)
}

func TestDeleteSpace(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	meta1 := driven.VectorMetadata{SpaceID: "s1"}
	require.NoError(t, x.Add(ctx, domain.KindChunk, "c1", []float32{1, 0}, meta1))
	require.NoError(t, x.Add(ctx, domain.KindDocument, "d1", []float32{1, 0}, meta1))
	addVector(t, x, "s2", "survivor", []float32{1, 0})

	require.NoError(t, x.DeleteSpace(ctx, "s1"))

	hits, err := x.Search(ctx, domain.KindChunk, []float32{1, 0}, 10, domain.RankFilter{SpaceID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = x.Search(ctx, domain.KindDocument, []float32{1, 0}, 10, domain.RankFilter{SpaceID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = x.Search(ctx, domain.KindChunk, []float32{1, 0}, 10, domain.RankFilter{SpaceID: "s2"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestAdd_CopiesEmbedding(t *testing.T) {
	x := NewIndex()
	ctx := context.Background()
	vec := []float32{1, 0}
	require.NoError(t, x.Add(ctx, domain.KindChunk, "c1", vec, driven.VectorMetadata{SpaceID: "s1"}))

	// Caller mutation after Add must not affect the stored vector.
	vec[0] = 0
	vec[1] = 1

	hits, err := x.Search(ctx, domain.KindChunk, []float32{1, 0}, 1, domain.RankFilter{SpaceID: "s1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
}
