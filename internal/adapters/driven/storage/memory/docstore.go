package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Useful for tests and as a reference for the space-scoping contract.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// ReplaceDocument atomically upserts a document and replaces its chunks.
func (s *DocumentStore) ReplaceDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	copied := make([]domain.Chunk, len(chunks))
	copy(copied, chunks)
	s.chunks[doc.ID] = copied
	return nil
}

// GetDocument retrieves a document by ID within a space.
func (s *DocumentStore) GetDocument(_ context.Context, spaceID, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok || doc.SpaceID != spaceID {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetByUniqueKey retrieves a document by its identity digest.
func (s *DocumentStore) GetByUniqueKey(_ context.Context, spaceID, uniqueKey string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id := range s.documents {
		doc := s.documents[id]
		if doc.SpaceID == spaceID && doc.UniqueKey == uniqueKey {
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetChunks retrieves all chunks for a document in position order.
func (s *DocumentStore) GetChunks(_ context.Context, spaceID, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok || doc.SpaceID != spaceID {
		return nil, nil
	}
	return s.chunks[documentID], nil
}

// GetChunk retrieves a specific chunk, verifying it belongs to the space.
func (s *DocumentStore) GetChunk(_ context.Context, spaceID, chunkID string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for docID, chunks := range s.chunks {
		doc, ok := s.documents[docID]
		if !ok || doc.SpaceID != spaceID {
			continue
		}
		for _, chunk := range chunks {
			if chunk.ID == chunkID {
				return &chunk, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, spaceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok || doc.SpaceID != spaceID {
		return nil
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// ListDocuments returns documents in a space, optionally for one source.
func (s *DocumentStore) ListDocuments(_ context.Context, spaceID, sourceID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Document
	for id := range s.documents {
		doc := s.documents[id]
		if doc.SpaceID != spaceID {
			continue
		}
		if sourceID != "" && doc.SourceID != sourceID {
			continue
		}
		result = append(result, doc)
	}
	return result, nil
}
