package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input: an empty
	// query, a missing space id, a nonsensical limit. Surfaced to the
	// caller immediately, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorage indicates a transient storage failure (connectivity,
	// transaction conflict). Retried with bounded attempts at the
	// operation boundary - a single document persist or a single ranker
	// call - never silently across a whole batch.
	ErrStorage = errors.New("storage failure")

	// ErrUnknownDocumentType indicates a document type outside the closed
	// set. Filters carrying one fail closed instead of being ignored.
	ErrUnknownDocumentType = errors.New("unknown document type")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable. During ingestion the affected item is
	// marked failed and the batch continues; at query time hybrid search
	// fails fast unless text-only mode was explicitly requested.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates the lexical search engine is not
	// configured.
	ErrSearchUnavailable = errors.New("search engine unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not
	// configured.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")
)
