package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
)

// spaceStore implements driven.SpaceStore.
type spaceStore struct {
	store *Store
}

var _ driven.SpaceStore = (*spaceStore)(nil)

// Save stores or updates a search space.
func (s *spaceStore) Save(ctx context.Context, space domain.SearchSpace) error {
	if space.ID == "" {
		return domain.ErrInvalidInput
	}
	if space.CreatedAt.IsZero() {
		space.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO spaces (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
	`, space.ID, space.Name, space.CreatedAt)
	if err != nil {
		return storageErr("saving space", err)
	}
	return nil
}

// Get retrieves a space by ID.
func (s *spaceStore) Get(ctx context.Context, id string) (*domain.SearchSpace, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM spaces WHERE id = ?", id)

	var space domain.SearchSpace
	if err := row.Scan(&space.ID, &space.Name, &space.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("scanning space", err)
	}
	return &space, nil
}

// List returns all search spaces.
func (s *spaceStore) List(ctx context.Context) ([]domain.SearchSpace, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM spaces ORDER BY created_at")
	if err != nil {
		return nil, storageErr("querying spaces", err)
	}
	defer rows.Close()

	var spaces []domain.SearchSpace //nolint:prealloc // size unknown from query
	for rows.Next() {
		var space domain.SearchSpace
		if err := rows.Scan(&space.ID, &space.Name, &space.CreatedAt); err != nil {
			return nil, storageErr("scanning space", err)
		}
		spaces = append(spaces, space)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating spaces", err)
	}

	return spaces, nil
}

// Delete removes a space. Documents and chunks cascade.
func (s *spaceStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM spaces WHERE id = ?", id)
	if err != nil {
		return storageErr("deleting space", err)
	}
	return nil
}
