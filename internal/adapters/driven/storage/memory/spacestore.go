package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
)

// Ensure SpaceStore implements the interface.
var _ driven.SpaceStore = (*SpaceStore)(nil)

// SpaceStore is an in-memory implementation of driven.SpaceStore.
type SpaceStore struct {
	mu     sync.RWMutex
	spaces map[string]domain.SearchSpace
}

// NewSpaceStore creates a new in-memory space store.
func NewSpaceStore() *SpaceStore {
	return &SpaceStore{
		spaces: make(map[string]domain.SearchSpace),
	}
}

// Save stores or updates a space.
func (s *SpaceStore) Save(_ context.Context, space domain.SearchSpace) error {
	if space.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if space.CreatedAt.IsZero() {
		space.CreatedAt = time.Now().UTC()
	}
	s.spaces[space.ID] = space
	return nil
}

// Get retrieves a space by ID.
func (s *SpaceStore) Get(_ context.Context, id string) (*domain.SearchSpace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	space, ok := s.spaces[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &space, nil
}

// List returns all spaces sorted by ID.
func (s *SpaceStore) List(_ context.Context) ([]domain.SearchSpace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.SearchSpace, 0, len(s.spaces))
	for id := range s.spaces {
		result = append(result, s.spaces[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Delete removes a space.
func (s *SpaceStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spaces, id)
	return nil
}
