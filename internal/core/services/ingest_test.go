package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-engine/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/postprocessors"
	"github.com/custodia-labs/sercha-engine/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-engine/internal/summarizer"
)

// flakyDocStore injects transient storage failures into ReplaceDocument.
type flakyDocStore struct {
	*memory.DocumentStore
	failures     int
	replaceCalls int
}

func (s *flakyDocStore) ReplaceDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.replaceCalls++
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("database is locked: %w", domain.ErrStorage)
	}
	return s.DocumentStore.ReplaceDocument(ctx, doc, chunks)
}

// poisonEmbedder embeds deterministically except for texts containing
// the poison marker, which fail as if the model were down.
type poisonEmbedder struct {
	poison string
}

func (e *poisonEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, e.poison) {
		return nil, fmt.Errorf("model overloaded")
	}
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	return vec, nil
}

func (e *poisonEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (e *poisonEmbedder) Dimensions() int { return 8 }

func (e *poisonEmbedder) ModelName() string { return "poison-embed" }

func (e *poisonEmbedder) Ping(_ context.Context) error { return nil }

func (e *poisonEmbedder) Close() error { return nil }

func newTestIngestion(docStore *memory.DocumentStore, vec *mockVectorIndex, emb *mockEmbeddingService) *IngestionPipeline {
	pipeline := postprocessors.NewPipeline(chunker.New(
		chunker.WithChunkSize(50),
		chunker.WithOverlap(10),
	))
	return NewIngestionPipeline(docStore, vec, emb, summarizer.NewFrequency(), pipeline, IngestConfig{
		RetryDelay: time.Millisecond,
	})
}

func makeItem(stableID, content string) domain.SourceItem {
	return domain.SourceItem{
		StableID:     stableID,
		DocumentType: domain.DocumentTypeNote,
		Title:        "Note " + stableID,
		RawContent:   content,
	}
}

func TestIngestBatch_CreatesDocument(t *testing.T) {
	docStore := memory.NewDocumentStore()
	vec := newMockVectorIndex()
	emb := &mockEmbeddingService{}
	svc := newTestIngestion(docStore, vec, emb)
	ctx := context.Background()

	report, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "the quick brown fox jumps over the lazy dog and keeps running"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Zero(t, report.Updated)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Failed)

	key := domain.UniqueKey(domain.DocumentTypeNote, "note-1", testSpace)
	doc, err := docStore.GetByUniqueKey(ctx, testSpace, key)
	require.NoError(t, err)
	assert.Equal(t, "Note note-1", doc.Title)
	assert.NotEmpty(t, doc.Content)   // summary
	assert.NotEmpty(t, doc.Embedding) // summary vector
	assert.NotEmpty(t, doc.ContentHash)

	chunks, err := docStore.GetChunks(ctx, testSpace, doc.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Embedding)
	}

	// Chunk vectors and the document summary vector were indexed.
	assert.Len(t, vec.added[string(domain.KindChunk)], len(chunks))
	assert.Len(t, vec.added[string(domain.KindDocument)], 1)
}

func TestIngestBatch_SkipsUnchangedContent(t *testing.T) {
	docStore := memory.NewDocumentStore()
	vec := newMockVectorIndex()
	emb := &mockEmbeddingService{}
	svc := newTestIngestion(docStore, vec, emb)
	ctx := context.Background()

	items := []domain.SourceItem{makeItem("note-1", "stable content that does not change")}

	first, err := svc.IngestBatch(ctx, testSpace, "src-1", items)
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	callsAfterFirst := emb.embedCalls

	second, err := svc.IngestBatch(ctx, testSpace, "src-1", items)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Skipped)
	assert.Zero(t, second.Created)
	assert.Zero(t, second.Updated)

	// No chunking, embedding or persisting on the skip path.
	assert.Equal(t, callsAfterFirst, emb.embedCalls)
}

func TestIngestBatch_UpdatesChangedContent(t *testing.T) {
	docStore := memory.NewDocumentStore()
	vec := newMockVectorIndex()
	emb := &mockEmbeddingService{}
	svc := newTestIngestion(docStore, vec, emb)
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "original content"),
	})
	require.NoError(t, err)

	key := domain.UniqueKey(domain.DocumentTypeNote, "note-1", testSpace)
	before, err := docStore.GetByUniqueKey(ctx, testSpace, key)
	require.NoError(t, err)
	oldChunks, err := docStore.GetChunks(ctx, testSpace, before.ID)
	require.NoError(t, err)

	report, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "entirely different content now"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Created)

	after, err := docStore.GetByUniqueKey(ctx, testSpace, key)
	require.NoError(t, err)
	// Same logical document, new content hash.
	assert.Equal(t, before.ID, after.ID)
	assert.NotEqual(t, before.ContentHash, after.ContentHash)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)

	// Stale chunk vectors were purged.
	for _, old := range oldChunks {
		assert.Contains(t, vec.deleted[string(domain.KindChunk)], old.ID)
	}
}

func TestIngestBatch_PartialFailure(t *testing.T) {
	docStore := memory.NewDocumentStore()
	svc := newTestIngestion(docStore, newMockVectorIndex(), &mockEmbeddingService{})
	ctx := context.Background()

	bad := makeItem("note-bad", "content")
	bad.DocumentType = "spreadsheet"

	report, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "first item content"),
		bad,
		makeItem("note-3", "third item content"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "note-bad", report.Failures[0].StableID)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrUnknownDocumentType)
}

func TestIngestBatch_EmbedFailureMidBatch(t *testing.T) {
	docStore := memory.NewDocumentStore()
	pipeline := postprocessors.NewPipeline(chunker.New())
	svc := NewIngestionPipeline(docStore, newMockVectorIndex(), &poisonEmbedder{poison: "poison"},
		summarizer.NewFrequency(), pipeline, IngestConfig{RetryDelay: time.Millisecond})
	ctx := context.Background()

	report, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "clean first item"),
		makeItem("note-2", "this one is poison"),
		makeItem("note-3", "clean third item"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "note-2", report.Failures[0].StableID)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrEmbeddingUnavailable)

	// The healthy siblings landed.
	docs, err := docStore.ListDocuments(ctx, testSpace, "src-1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIngestBatch_Cancellation(t *testing.T) {
	docStore := memory.NewDocumentStore()
	svc := newTestIngestion(docStore, newMockVectorIndex(), &mockEmbeddingService{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "content one"),
		makeItem("note-2", "content two"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Created)

	// Nothing was persisted after cancellation.
	docs, err := docStore.ListDocuments(context.Background(), testSpace, "src-1")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestBatch_RetriesTransientStorageFailure(t *testing.T) {
	flaky := &flakyDocStore{DocumentStore: memory.NewDocumentStore(), failures: 2}
	pipeline := postprocessors.NewPipeline(chunker.New())
	svc := NewIngestionPipeline(flaky, newMockVectorIndex(), &mockEmbeddingService{},
		summarizer.NewFrequency(), pipeline, IngestConfig{RetryDelay: time.Millisecond})
	ctx := context.Background()

	report, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "content that should survive two transient failures"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 3, flaky.replaceCalls)
}

func TestIngestBatch_GivesUpAfterBoundedRetries(t *testing.T) {
	flaky := &flakyDocStore{DocumentStore: memory.NewDocumentStore(), failures: 10}
	pipeline := postprocessors.NewPipeline(chunker.New())
	svc := NewIngestionPipeline(flaky, newMockVectorIndex(), &mockEmbeddingService{},
		summarizer.NewFrequency(), pipeline, IngestConfig{RetryDelay: time.Millisecond})
	ctx := context.Background()

	report, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "content"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrStorage)
	assert.Equal(t, DefaultPersistAttempts, flaky.replaceCalls)
}

func TestIngestBatch_EmbeddingFailureFailsItem(t *testing.T) {
	docStore := memory.NewDocumentStore()
	emb := &mockEmbeddingService{embedErr: fmt.Errorf("connection refused")}
	svc := newTestIngestion(docStore, newMockVectorIndex(), emb)
	ctx := context.Background()

	report, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "content"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.ErrorIs(t, report.Failures[0].Err, domain.ErrEmbeddingUnavailable)
}

func TestRemoveItem(t *testing.T) {
	docStore := memory.NewDocumentStore()
	vec := newMockVectorIndex()
	svc := newTestIngestion(docStore, vec, &mockEmbeddingService{})
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "content to be removed later"),
	})
	require.NoError(t, err)

	key := domain.UniqueKey(domain.DocumentTypeNote, "note-1", testSpace)
	doc, err := docStore.GetByUniqueKey(ctx, testSpace, key)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveItem(ctx, testSpace, domain.DocumentTypeNote, "note-1"))

	_, err = docStore.GetByUniqueKey(ctx, testSpace, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, vec.deleted[string(domain.KindDocument)], doc.ID)
}

func TestRemoveItem_MissingIsNoop(t *testing.T) {
	svc := newTestIngestion(memory.NewDocumentStore(), newMockVectorIndex(), &mockEmbeddingService{})

	err := svc.RemoveItem(context.Background(), testSpace, domain.DocumentTypeNote, "never-ingested")

	assert.NoError(t, err)
}

func TestRemoveSource(t *testing.T) {
	docStore := memory.NewDocumentStore()
	svc := newTestIngestion(docStore, newMockVectorIndex(), &mockEmbeddingService{})
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, testSpace, "src-1", []domain.SourceItem{
		makeItem("note-1", "first"),
		makeItem("note-2", "second"),
	})
	require.NoError(t, err)
	_, err = svc.IngestBatch(ctx, testSpace, "src-2", []domain.SourceItem{
		makeItem("note-3", "third, different source"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveSource(ctx, testSpace, "src-1"))

	remaining, err := docStore.ListDocuments(ctx, testSpace, "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "src-2", remaining[0].SourceID)
}
