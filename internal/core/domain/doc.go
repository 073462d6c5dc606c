// Package domain contains the core business entities of the retrieval
// engine: documents, chunks, search spaces, ranking types and the error
// taxonomy. It has no dependencies on adapters or infrastructure.
package domain
