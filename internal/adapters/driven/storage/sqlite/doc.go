// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - SpaceStore: Search space (tenant) persistence
//   - DocumentStore: Document and chunk persistence
//   - SearchEngine: Lexical full-text ranking via FTS5
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Documents and chunks are mirrored into FTS5 tables
// (porter unicode61 tokenizer) kept in sync by triggers, so lexical ranking
// always reflects the committed relational state.
//
// # Tenant Isolation
//
// Every query filters on space_id before anything else. The FTS queries join
// back to the relational tables so a match can never cross a space boundary.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-engine/data/engine.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
