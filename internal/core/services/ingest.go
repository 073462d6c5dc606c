package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-engine/internal/logger"
)

// Ensure IngestionPipeline implements the interface.
var _ driving.IngestionService = (*IngestionPipeline)(nil)

// DefaultPersistAttempts bounds retry of a single document persist on
// transient storage failure.
const DefaultPersistAttempts = 3

// defaultRetryDelay is the base backoff between persist attempts.
const defaultRetryDelay = 100 * time.Millisecond

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	// PersistAttempts bounds retries of one document's transaction.
	// Zero means DefaultPersistAttempts.
	PersistAttempts int

	// RetryDelay is the base backoff between attempts. Zero means the
	// built-in default.
	RetryDelay time.Duration

	// SummarySentences caps the generated document summary length.
	// Zero means the summariser's default.
	SummarySentences int
}

// IngestionPipeline turns connector output into indexed documents.
// Each item moves through hash check, chunking, embedding and a single
// persist transaction; unchanged items are skipped without writes, and a
// failing item never aborts its siblings.
type IngestionPipeline struct {
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
	summariser  driven.Summariser
	processors  driven.PostProcessorPipeline
	cfg         IngestConfig
}

// NewIngestionPipeline creates a new ingestion pipeline. All collaborators
// are injected; none are package globals. vectorIndex may be nil, in
// which case only lexical indexing happens.
func NewIngestionPipeline(
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	summariser driven.Summariser,
	processors driven.PostProcessorPipeline,
	cfg IngestConfig,
) *IngestionPipeline {
	return &IngestionPipeline{
		docStore:    docStore,
		vectorIndex: vectorIndex,
		embedder:    embedder,
		summariser:  summariser,
		processors:  processors,
		cfg:         cfg,
	}
}

// IngestBatch processes source items sequentially within the batch.
// Items are independent: batches for different spaces may run
// concurrently, consistency comes from the per-document transaction.
// Cancellation is checked between items, before any writes for the next
// item begin, so an interrupted batch never leaves a document half
// persisted.
func (p *IngestionPipeline) IngestBatch(
	ctx context.Context, spaceID, sourceID string, items []domain.SourceItem,
) (*domain.IngestReport, error) {
	logger.Section("Ingestion Batch")
	logger.Debug("Space: %s, Source: %s, Items: %d", spaceID, sourceID, len(items))

	if spaceID == "" {
		return nil, fmt.Errorf("%w: space id is required", domain.ErrInvalidInput)
	}

	report := &domain.IngestReport{}

	for i := range items {
		if err := ctx.Err(); err != nil {
			logger.Warn("Batch cancelled after %d items", i)
			return report, err
		}

		item := &items[i]
		outcome, err := p.processItem(ctx, spaceID, sourceID, item)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, domain.ItemFailure{
				StableID: item.StableID,
				Err:      err,
			})
			logger.Warn("Item %s failed: %v", item.StableID, err)
			continue
		}

		switch outcome {
		case itemCreated:
			report.Created++
		case itemUpdated:
			report.Updated++
		case itemSkipped:
			report.Skipped++
		}
	}

	logger.Info("Batch done: created=%d updated=%d skipped=%d failed=%d",
		report.Created, report.Updated, report.Skipped, report.Failed)

	return report, nil
}

// itemOutcome classifies what happened to one source item.
type itemOutcome int

const (
	itemCreated itemOutcome = iota
	itemUpdated
	itemSkipped
)

// processItem runs one source item through the pipeline:
// hash check -> skip | chunk -> embed -> persist.
func (p *IngestionPipeline) processItem(
	ctx context.Context, spaceID, sourceID string, item *domain.SourceItem,
) (itemOutcome, error) {
	if item.StableID == "" {
		return 0, fmt.Errorf("%w: source item has no stable id", domain.ErrInvalidInput)
	}
	if !item.DocumentType.Valid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownDocumentType, item.DocumentType)
	}

	uniqueKey := domain.UniqueKey(item.DocumentType, item.StableID, spaceID)
	contentHash := domain.ContentHash(spaceID, item.RawContent)

	existing, err := p.docStore.GetByUniqueKey(ctx, spaceID, uniqueKey)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("lookup by unique key: %w", err)
	}

	if existing != nil && existing.ContentHash == contentHash {
		logger.Debug("Item %s unchanged, skipping", item.StableID)
		return itemSkipped, nil
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:           uuid.New().String(),
		SpaceID:      spaceID,
		SourceID:     sourceID,
		DocumentType: item.DocumentType,
		Title:        item.Title,
		ContentHash:  contentHash,
		UniqueKey:    uniqueKey,
		Metadata:     item.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing != nil {
		doc.ID = existing.ID
		doc.CreatedAt = existing.CreatedAt
	}

	// The chunker reads Content from a staging copy carrying the raw
	// text; the persisted document's Content is the summary.
	staging := *doc
	staging.Content = item.RawContent
	chunks, err := p.processors.Process(ctx, &staging)
	if err != nil {
		return 0, fmt.Errorf("chunk: %w", err)
	}

	summary, err := p.summariser.Summarise(ctx, item.RawContent, p.cfg.SummarySentences)
	if err != nil {
		return 0, fmt.Errorf("summarise: %w", err)
	}
	doc.Content = summary

	if err := p.embed(ctx, doc, chunks); err != nil {
		return 0, err
	}

	// Old chunk ids are collected before the replace so their vectors
	// can be purged afterwards.
	var staleChunkIDs []string
	if existing != nil {
		oldChunks, err := p.docStore.GetChunks(ctx, spaceID, existing.ID)
		if err != nil {
			return 0, fmt.Errorf("get prior chunks: %w", err)
		}
		staleChunkIDs = make([]string, len(oldChunks))
		for i := range oldChunks {
			staleChunkIDs[i] = oldChunks[i].ID
		}
	}

	if err := p.persistWithRetry(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("persist: %w", err)
	}

	p.updateVectors(ctx, doc, chunks, staleChunkIDs)

	if existing != nil {
		logger.Debug("Item %s updated (%d chunks)", item.StableID, len(chunks))
		return itemUpdated, nil
	}
	logger.Debug("Item %s created (%d chunks)", item.StableID, len(chunks))
	return itemCreated, nil
}

// embed fills in the summary and chunk embeddings.
func (p *IngestionPipeline) embed(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if p.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i := range chunks {
			texts[i] = chunks[i].Content
		}
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: embed chunks: %v", domain.ErrEmbeddingUnavailable, err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("%w: got %d embeddings for %d chunks",
				domain.ErrEmbeddingUnavailable, len(vectors), len(chunks))
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
	}

	summaryVec, err := p.embedder.Embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("%w: embed summary: %v", domain.ErrEmbeddingUnavailable, err)
	}
	doc.Embedding = summaryVec
	return nil
}

// persistWithRetry commits the document transaction, retrying bounded
// times on transient storage failure only.
func (p *IngestionPipeline) persistWithRetry(
	ctx context.Context, doc *domain.Document, chunks []domain.Chunk,
) error {
	attempts := p.cfg.PersistAttempts
	if attempts <= 0 {
		attempts = DefaultPersistAttempts
	}
	delay := p.cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = p.docStore.ReplaceDocument(ctx, doc, chunks)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrStorage) {
			return err
		}
		if attempt < attempts {
			logger.Warn("Persist attempt %d/%d failed: %v", attempt, attempts, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * delay):
			}
		}
	}
	return err
}

// updateVectors synchronises the vector index after the transaction
// committed. Failures here leave vector search stale for this document
// until its content next changes; lexical search stays correct, so they
// are logged instead of failing an already persisted item.
func (p *IngestionPipeline) updateVectors(
	ctx context.Context, doc *domain.Document, chunks []domain.Chunk, staleChunkIDs []string,
) {
	if p.vectorIndex == nil {
		return
	}

	if len(staleChunkIDs) > 0 {
		if err := p.vectorIndex.Delete(ctx, domain.KindChunk, doc.SpaceID, staleChunkIDs); err != nil {
			logger.Warn("Delete stale vectors for %s: %v", doc.ID, err)
		}
	}

	meta := driven.VectorMetadata{
		SpaceID:      doc.SpaceID,
		DocumentID:   doc.ID,
		DocumentType: doc.DocumentType,
		UpdatedAt:    doc.UpdatedAt,
	}

	for i := range chunks {
		if chunks[i].Embedding == nil {
			continue
		}
		if err := p.vectorIndex.Add(ctx, domain.KindChunk, chunks[i].ID, chunks[i].Embedding, meta); err != nil {
			logger.Warn("Add chunk vector %s: %v", chunks[i].ID, err)
		}
	}

	if doc.Embedding != nil {
		if err := p.vectorIndex.Add(ctx, domain.KindDocument, doc.ID, doc.Embedding, meta); err != nil {
			logger.Warn("Add document vector %s: %v", doc.ID, err)
		}
	}
}

// RemoveItem deletes the document previously ingested for a source item.
func (p *IngestionPipeline) RemoveItem(
	ctx context.Context, spaceID string, docType domain.DocumentType, stableID string,
) error {
	if !docType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownDocumentType, docType)
	}

	uniqueKey := domain.UniqueKey(docType, stableID, spaceID)
	doc, err := p.docStore.GetByUniqueKey(ctx, spaceID, uniqueKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup by unique key: %w", err)
	}

	return p.removeDocument(ctx, doc)
}

// RemoveSource deletes every document a connector produced in a space.
func (p *IngestionPipeline) RemoveSource(ctx context.Context, spaceID, sourceID string) error {
	docs, err := p.docStore.ListDocuments(ctx, spaceID, sourceID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	var errs []error
	for i := range docs {
		if err := p.removeDocument(ctx, &docs[i]); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", docs[i].ID, err))
		}
	}
	return errors.Join(errs...)
}

// removeDocument deletes a document's row (chunks cascade) and its
// vectors.
func (p *IngestionPipeline) removeDocument(ctx context.Context, doc *domain.Document) error {
	chunks, err := p.docStore.GetChunks(ctx, doc.SpaceID, doc.ID)
	if err != nil {
		return fmt.Errorf("get chunks: %w", err)
	}

	if err := p.docStore.DeleteDocument(ctx, doc.SpaceID, doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if p.vectorIndex != nil {
		ids := make([]string, len(chunks))
		for i := range chunks {
			ids[i] = chunks[i].ID
		}
		if len(ids) > 0 {
			if err := p.vectorIndex.Delete(ctx, domain.KindChunk, doc.SpaceID, ids); err != nil {
				logger.Warn("Delete chunk vectors for %s: %v", doc.ID, err)
			}
		}
		if err := p.vectorIndex.Delete(ctx, domain.KindDocument, doc.SpaceID, []string{doc.ID}); err != nil {
			logger.Warn("Delete document vector %s: %v", doc.ID, err)
		}
	}

	logger.Debug("Removed document %s (%d chunks)", doc.ID, len(chunks))
	return nil
}
