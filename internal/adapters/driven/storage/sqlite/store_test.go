package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedSpace(t *testing.T, store *Store, id string) {
	t.Helper()
	err := store.SpaceStore().Save(context.Background(), domain.SearchSpace{ID: id, Name: "Space " + id})
	require.NoError(t, err)
}

func makeDoc(spaceID, id, content string) *domain.Document {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Document{
		ID:           id,
		SpaceID:      spaceID,
		SourceID:     "src-1",
		DocumentType: domain.DocumentTypeNote,
		Title:        "Title " + id,
		Content:      content,
		ContentHash:  domain.ContentHash(spaceID, content),
		UniqueKey:    domain.UniqueKey(domain.DocumentTypeNote, id, spaceID),
		Embedding:    []float32{0.1, 0.2, 0.3},
		Metadata:     map[string]any{"origin": "test"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func makeChunks(docID string, contents ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = domain.Chunk{
			ID:         docID + "-chunk-" + string(rune('a'+i)),
			DocumentID: docID,
			Content:    c,
			Position:   i,
			Embedding:  []float32{float32(i)},
		}
	}
	return chunks
}

func TestNewStore_ReopenIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	first, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Migrations already applied; reopening must not re-run them.
	second, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSpaceStore_CRUD(t *testing.T) {
	store := newTestStore(t)
	spaces := store.SpaceStore()
	ctx := context.Background()

	require.NoError(t, spaces.Save(ctx, domain.SearchSpace{ID: "s1", Name: "First"}))
	require.NoError(t, spaces.Save(ctx, domain.SearchSpace{ID: "s2", Name: "Second"}))

	got, err := spaces.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	// Saving again updates the name, not the identity.
	require.NoError(t, spaces.Save(ctx, domain.SearchSpace{ID: "s1", Name: "Renamed"}))
	got, err = spaces.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	all, err := spaces.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, spaces.Delete(ctx, "s1"))
	_, err = spaces.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSpaceStore_SaveRequiresID(t *testing.T) {
	store := newTestStore(t)

	err := store.SpaceStore().Save(context.Background(), domain.SearchSpace{Name: "no id"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := makeDoc("s1", "doc-1", "alpha beta gamma")
	chunks := makeChunks("doc-1", "alpha beta", "beta gamma")
	require.NoError(t, docs.ReplaceDocument(ctx, doc, chunks))

	got, err := docs.GetDocument(ctx, "s1", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.ContentHash, got.ContentHash)
	assert.Equal(t, domain.DocumentTypeNote, got.DocumentType)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Embedding)
	assert.Equal(t, "test", got.Metadata["origin"])

	byKey, err := docs.GetByUniqueKey(ctx, "s1", doc.UniqueKey)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", byKey.ID)

	gotChunks, err := docs.GetChunks(ctx, "s1", "doc-1")
	require.NoError(t, err)
	require.Len(t, gotChunks, 2)
	assert.Equal(t, "alpha beta", gotChunks[0].Content)
	assert.Equal(t, 0, gotChunks[0].Position)
	assert.Equal(t, "beta gamma", gotChunks[1].Content)

	chunk, err := docs.GetChunk(ctx, "s1", gotChunks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", chunk.DocumentID)
	assert.Equal(t, []float32{1}, chunk.Embedding)
}

func TestDocumentStore_ReplaceSwapsChunks(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := makeDoc("s1", "doc-1", "version one")
	require.NoError(t, docs.ReplaceDocument(ctx, doc, makeChunks("doc-1", "old chunk one", "old chunk two")))

	doc.Content = "version two"
	doc.ContentHash = domain.ContentHash("s1", doc.Content)
	newChunks := []domain.Chunk{{ID: "doc-1-chunk-new", DocumentID: "doc-1", Content: "new chunk", Position: 0}}
	require.NoError(t, docs.ReplaceDocument(ctx, doc, newChunks))

	gotChunks, err := docs.GetChunks(ctx, "s1", "doc-1")
	require.NoError(t, err)
	require.Len(t, gotChunks, 1)
	assert.Equal(t, "new chunk", gotChunks[0].Content)

	_, err = docs.GetChunk(ctx, "s1", "doc-1-chunk-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SpaceIsolation(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	seedSpace(t, store, "s2")
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := makeDoc("s1", "doc-1", "private content")
	require.NoError(t, docs.ReplaceDocument(ctx, doc, makeChunks("doc-1", "private chunk")))

	// Ident lookups from the wrong space come back not found.
	_, err := docs.GetDocument(ctx, "s2", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = docs.GetByUniqueKey(ctx, "s2", doc.UniqueKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = docs.GetChunk(ctx, "s2", "doc-1-chunk-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := docs.GetChunks(ctx, "s2", "doc-1")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	listed, err := docs.ListDocuments(ctx, "s2", "")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestDocumentStore_DeleteCascadesToChunks(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.ReplaceDocument(ctx, makeDoc("s1", "doc-1", "content"),
		makeChunks("doc-1", "chunk content")))

	require.NoError(t, docs.DeleteDocument(ctx, "s1", "doc-1"))

	_, err := docs.GetDocument(ctx, "s1", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = docs.GetChunk(ctx, "s1", "doc-1-chunk-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSpaceStore_DeleteCascadesToDocuments(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	ctx := context.Background()

	require.NoError(t, store.DocumentStore().ReplaceDocument(ctx,
		makeDoc("s1", "doc-1", "content"), makeChunks("doc-1", "chunk content")))

	require.NoError(t, store.SpaceStore().Delete(ctx, "s1"))

	_, err := store.DocumentStore().GetDocument(ctx, "s1", "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListFiltersBySource(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	docs := store.DocumentStore()
	ctx := context.Background()

	a := makeDoc("s1", "doc-a", "from source one")
	b := makeDoc("s1", "doc-b", "from source two")
	b.SourceID = "src-2"
	require.NoError(t, docs.ReplaceDocument(ctx, a, nil))
	require.NoError(t, docs.ReplaceDocument(ctx, b, nil))

	all, err := docs.ListDocuments(ctx, "s1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := docs.ListDocuments(ctx, "s1", "src-2")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "doc-b", only[0].ID)
}

func TestSearch_RanksChunksByRelevance(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	ctx := context.Background()

	doc := makeDoc("s1", "doc-1", "animals")
	chunks := makeChunks("doc-1",
		"the zebra crossed the river",
		"zebra zebra zebra everywhere",
		"nothing relevant in here at all",
	)
	require.NoError(t, store.DocumentStore().ReplaceDocument(ctx, doc, chunks))

	hits, err := store.SearchEngine().Search(ctx, domain.KindChunk, "zebra", 10,
		domain.RankFilter{SpaceID: "s1"})

	require.NoError(t, err)
	require.Len(t, hits, 2)
	// The chunk repeating the term ranks first.
	assert.Equal(t, "doc-1-chunk-b", hits[0].EntityID)
	assert.Equal(t, "doc-1-chunk-a", hits[1].EntityID)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestSearch_DocumentsMatchTitleAndSummary(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	ctx := context.Background()

	doc := makeDoc("s1", "doc-1", "a summary about kubernetes clusters")
	require.NoError(t, store.DocumentStore().ReplaceDocument(ctx, doc, nil))

	hits, err := store.SearchEngine().Search(ctx, domain.KindDocument, "kubernetes", 10,
		domain.RankFilter{SpaceID: "s1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-1", hits[0].EntityID)

	// Update flows through to the mirror.
	doc.Content = "a summary about postgres replication"
	require.NoError(t, store.DocumentStore().ReplaceDocument(ctx, doc, nil))

	hits, err = store.SearchEngine().Search(ctx, domain.KindDocument, "kubernetes", 10,
		domain.RankFilter{SpaceID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_SpaceIsolation(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	seedSpace(t, store, "s2")
	ctx := context.Background()

	require.NoError(t, store.DocumentStore().ReplaceDocument(ctx,
		makeDoc("s1", "doc-1", "secret"), makeChunks("doc-1", "confidential zebra details")))

	hits, err := store.SearchEngine().Search(ctx, domain.KindChunk, "zebra", 10,
		domain.RankFilter{SpaceID: "s2"})

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_DocumentTypeFilter(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	docs := store.DocumentStore()
	ctx := context.Background()

	note := makeDoc("s1", "doc-note", "notes")
	require.NoError(t, docs.ReplaceDocument(ctx, note, makeChunks("doc-note", "quarterly report draft")))

	email := makeDoc("s1", "doc-email", "emails")
	email.DocumentType = domain.DocumentTypeEmail
	email.UniqueKey = domain.UniqueKey(domain.DocumentTypeEmail, "doc-email", "s1")
	require.NoError(t, docs.ReplaceDocument(ctx, email, makeChunks("doc-email", "quarterly numbers attached")))

	hits, err := store.SearchEngine().Search(ctx, domain.KindChunk, "quarterly", 10,
		domain.RankFilter{SpaceID: "s1", DocumentTypes: []domain.DocumentType{domain.DocumentTypeEmail}})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-email-chunk-a", hits[0].EntityID)
}

func TestSearch_StopwordOnlyQuery(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")

	hits, err := store.SearchEngine().Search(context.Background(), domain.KindChunk,
		"the and of that", 10, domain.RankFilter{SpaceID: "s1"})

	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_UpdatedAfterFilter(t *testing.T) {
	store := newTestStore(t)
	seedSpace(t, store, "s1")
	docs := store.DocumentStore()
	ctx := context.Background()

	old := makeDoc("s1", "doc-old", "archive")
	old.UpdatedAt = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, docs.ReplaceDocument(ctx, old, makeChunks("doc-old", "zebra sighting log")))

	fresh := makeDoc("s1", "doc-new", "recent")
	require.NoError(t, docs.ReplaceDocument(ctx, fresh, makeChunks("doc-new", "zebra sighting today")))

	hits, err := store.SearchEngine().Search(ctx, domain.KindChunk, "zebra", 10,
		domain.RankFilter{
			SpaceID:      "s1",
			UpdatedAfter: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		})

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-new-chunk-a", hits[0].EntityID)
}

func TestBuildMatchQuery(t *testing.T) {
	assert.Equal(t, `"zebra" OR "crossing"`, buildMatchQuery("the zebra crossing"))
	assert.Equal(t, `"zebra"`, buildMatchQuery("Zebra!"))
	assert.Equal(t, "", buildMatchQuery("the and of"))
	assert.Equal(t, "", buildMatchQuery(""))
	// Punctuation that would break FTS5 syntax never reaches the query.
	assert.Equal(t, `"c'est" OR "bon"`, buildMatchQuery(`c'est "bon"`))
}

func TestEmbeddingBlobRoundTrip(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e20}

	assert.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
