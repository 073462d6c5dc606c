package domain

import "time"

// MaxEmbeddingDim is the hard ceiling on embedding vector size, imposed by
// the vector index engine. The configured dimension is validated against it
// at startup; changing dimensions requires a full re-embedding migration,
// not a live toggle.
const MaxEmbeddingDim = 2000

// Document represents an indexed document within a search space.
// Content holds a generated summary used for document-level ranking;
// the full text lives in the document's Chunks.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// SpaceID is the search space (tenant) this document belongs to.
	// Every query touching this document must filter by it first.
	SpaceID string

	// SourceID identifies the connector that produced this document, if any.
	SourceID string

	// DocumentType classifies the document (file, web page, issue, ...).
	DocumentType DocumentType

	// Title is the human-readable title.
	Title string

	// Content is the generated document-level summary, not the raw text.
	Content string

	// ContentHash is the content-addressed digest of (space, raw content).
	// Identical hashes mean re-ingestion is a no-op.
	ContentHash string

	// UniqueKey is the identity digest of (type, source stable id, space).
	// It deduplicates source items across repeated syncs even when their
	// content changed.
	UniqueKey string

	// Embedding is the vector for the summary text.
	Embedding []float32

	// Metadata contains arbitrary key-value pairs from the source.
	Metadata map[string]any

	// CreatedAt is when the document was first ingested.
	CreatedAt time.Time

	// UpdatedAt is when the document content last changed.
	UpdatedAt time.Time
}

// Chunk represents a bounded text segment of a document. Chunks are
// independently embedded and independently addressable for citation.
// They are replaced wholesale when their document is re-ingested, never
// patched in place.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document. Chunks are cascade-deleted
	// with their document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation for semantic search.
	Embedding []float32
}

// SearchSpace is the tenant boundary. All corpus data and queries are
// scoped to exactly one space.
type SearchSpace struct {
	// ID is the unique identifier for the space.
	ID string

	// Name is the human-readable label.
	Name string

	// CreatedAt is when the space was created.
	CreatedAt time.Time
}
