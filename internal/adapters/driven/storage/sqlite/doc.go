// Package sqlite provides a SQLite-backed implementation of driven.VectorStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Layout
//
// Every build writes a fresh physical table named vt_<table>_<build id>.
// The vector_tables registry maps each logical table to its live physical
// table. Commit updates the registry row and drops the previous physical
// table in one transaction, so readers see either the old rows or the new
// rows, never a mix. Staging tables left behind by a crashed build are
// dropped by the next CreateTable for the same name.
//
// Search is an exact cosine scan over the live table, read inside a single
// transaction.
//
// # Schema
//
// The registry schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.gdprqa/data/vectors.db
package sqlite
