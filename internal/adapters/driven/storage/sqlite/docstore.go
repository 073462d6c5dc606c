package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
	"github.com/custodia-labs/sercha-engine/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// documentColumns lists the document columns in scan order.
const documentColumns = `id, space_id, source_id, document_type, title, content,
	content_hash, unique_key, embedding, metadata, created_at, updated_at`

// ReplaceDocument atomically upserts a document and replaces its chunks.
// The FTS mirrors follow through triggers inside the same transaction.
func (s *documentStore) ReplaceDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			document_type = excluded.document_type,
			title = excluded.title,
			content = excluded.content,
			content_hash = excluded.content_hash,
			unique_key = excluded.unique_key,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.SpaceID, doc.SourceID, string(doc.DocumentType), doc.Title, doc.Content,
		doc.ContentHash, doc.UniqueKey, float32SliceToBytes(doc.Embedding),
		string(metadataJSON), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return storageErr("saving document", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return storageErr("deleting prior chunks", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageErr("preparing chunk insert", err)
	}
	defer stmt.Close()

	for i := range chunks {
		if _, err := stmt.ExecContext(ctx, chunks[i].ID, doc.ID, chunks[i].Content,
			chunks[i].Position, float32SliceToBytes(chunks[i].Embedding)); err != nil {
			return storageErr("saving chunk", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("committing transaction", err)
	}
	return nil
}

// GetDocument retrieves a document by ID within a space.
func (s *documentStore) GetDocument(ctx context.Context, spaceID, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE space_id = ? AND id = ?
	`, spaceID, id)

	return scanDocument(row)
}

// GetByUniqueKey retrieves a document by its identity digest.
func (s *documentStore) GetByUniqueKey(ctx context.Context, spaceID, uniqueKey string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE space_id = ? AND unique_key = ?
	`, spaceID, uniqueKey)

	return scanDocument(row)
}

// GetChunks retrieves all chunks for a document in position order.
func (s *documentStore) GetChunks(ctx context.Context, spaceID, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.content, c.position, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.space_id = ? AND c.document_id = ?
		ORDER BY c.position
	`, spaceID, documentID)
	if err != nil {
		return nil, storageErr("querying chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating chunks", err)
	}

	return chunks, nil
}

// GetChunk retrieves a specific chunk, verifying it belongs to the space.
func (s *documentStore) GetChunk(ctx context.Context, spaceID, chunkID string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT c.id, c.document_id, c.content, c.position, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.space_id = ? AND c.id = ?
	`, spaceID, chunkID)

	var chunk domain.Chunk
	var embeddingBlob []byte
	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.Position, &embeddingBlob); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("scanning chunk", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}

// DeleteDocument removes a document and, by cascade, its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, spaceID, id string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM documents WHERE space_id = ? AND id = ?", spaceID, id)
	if err != nil {
		return storageErr("deleting document", err)
	}
	return nil
}

// ListDocuments returns documents in a space, narrowed to one source
// when sourceID is non-empty.
func (s *documentStore) ListDocuments(ctx context.Context, spaceID, sourceID string) ([]domain.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE space_id = ?"
	args := []any{spaceID}
	if sourceID != "" {
		query += " AND source_id = ?"
		args = append(args, sourceID)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("querying documents", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating documents", err)
	}

	return docs, nil
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var docType string
	var embeddingBlob []byte
	var metadataJSON sql.NullString

	if err := row.Scan(&doc.ID, &doc.SpaceID, &doc.SourceID, &docType, &doc.Title,
		&doc.Content, &doc.ContentHash, &doc.UniqueKey, &embeddingBlob,
		&metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("scanning document", err)
	}

	return finishDocument(&doc, docType, embeddingBlob, metadataJSON)
}

// scanDocumentRows scans a document from *sql.Rows.
func scanDocumentRows(rows *sql.Rows) (*domain.Document, error) {
	var doc domain.Document
	var docType string
	var embeddingBlob []byte
	var metadataJSON sql.NullString

	if err := rows.Scan(&doc.ID, &doc.SpaceID, &doc.SourceID, &docType, &doc.Title,
		&doc.Content, &doc.ContentHash, &doc.UniqueKey, &embeddingBlob,
		&metadataJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, storageErr("scanning document", err)
	}

	return finishDocument(&doc, docType, embeddingBlob, metadataJSON)
}

// finishDocument decodes the non-scalar columns.
func finishDocument(doc *domain.Document, docType string, embeddingBlob []byte, metadataJSON sql.NullString) (*domain.Document, error) {
	doc.DocumentType = domain.DocumentType(docType)
	doc.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return doc, nil
}

// scanChunk scans a chunk from *sql.Rows.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte

	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.Position, &embeddingBlob); err != nil {
		return nil, storageErr("scanning chunk", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &chunk, nil
}
