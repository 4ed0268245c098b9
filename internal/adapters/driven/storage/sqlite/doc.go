// Package sqlite provides a SQLite-backed implementation of driven.DocumentStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It holds local snapshots of platform
// collections so reconciliation can be rehearsed before touching production.
//
// # Schema
//
// Every collection lives in one documents table keyed by (collection, id). The
// document body is stored as JSON and equality filters use json_extract. The
// schema is managed through versioned migrations in the migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.recon/data/documents.db
//
// # Thread Safety
//
// All operations are thread-safe. Batch writes run inside a single transaction,
// so each batch is applied completely or not at all.
package sqlite
