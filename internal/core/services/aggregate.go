package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-engine/internal/logger"
)

// aggregateChunks folds a fused chunk-level ranking into a document-level
// ranking. It walks the fused ordering best-first, maps each chunk to its
// owning document, keeps the first (highest) score per document, and
// stops once topK distinct documents are selected. Chunks referencing
// deleted rows are skipped.
func aggregateChunks(
	ctx context.Context,
	docStore driven.DocumentStore,
	spaceID string,
	fused []domain.FusedEntity,
	topK int,
) ([]domain.FusedEntity, error) {
	selected := make([]domain.FusedEntity, 0, topK)
	seen := make(map[string]bool, topK)

	for _, entry := range fused {
		if len(selected) >= topK {
			break
		}

		chunk, err := docStore.GetChunk(ctx, spaceID, entry.EntityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Chunk was deleted between ranking and aggregation.
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", entry.EntityID, err)
		}

		if seen[chunk.DocumentID] {
			continue
		}
		seen[chunk.DocumentID] = true
		selected = append(selected, domain.FusedEntity{
			EntityID: chunk.DocumentID,
			Score:    entry.Score,
		})
	}

	logger.Debug("Aggregation: %d fused chunks -> %d documents (top_k=%d)",
		len(fused), len(selected), topK)

	return selected, nil
}

// hydrateDocuments turns a document-level fused ranking into full search
// results. Every selected document is loaded with ALL of its chunks - not
// just the matched ones - concatenated in stable position order so each
// chunk stays addressable as [chunk:<id>] for citation.
func hydrateDocuments(
	ctx context.Context,
	docStore driven.DocumentStore,
	spaceID string,
	ranking []domain.FusedEntity,
) ([]domain.SearchResult, error) {
	results := make([]domain.SearchResult, 0, len(ranking))

	for _, entry := range ranking {
		doc, err := docStore.GetDocument(ctx, spaceID, entry.EntityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get document %s: %w", entry.EntityID, err)
		}

		chunks, err := docStore.GetChunks(ctx, spaceID, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("get chunks for %s: %w", doc.ID, err)
		}

		refs := make([]domain.ChunkRef, len(chunks))
		parts := make([]string, len(chunks))
		for i, chunk := range chunks {
			refs[i] = domain.ChunkRef{ChunkID: chunk.ID, Content: chunk.Content}
			parts[i] = fmt.Sprintf("[chunk:%s] %s", chunk.ID, chunk.Content)
		}

		results = append(results, domain.SearchResult{
			DocumentID:   doc.ID,
			Title:        doc.Title,
			DocumentType: doc.DocumentType,
			Score:        entry.Score,
			Chunks:       refs,
			Content:      strings.Join(parts, "\n\n"),
			Metadata:     doc.Metadata,
		})
	}

	return results, nil
}
