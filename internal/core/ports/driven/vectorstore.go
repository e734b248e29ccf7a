package driven

import (
	"context"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// VectorStore holds named vector tables of IndexRecords.
//
// Tables are only ever replaced whole: CreateTable stages a new table that
// becomes visible to Search and CountRows when its builder commits.
// Readers never observe a partially written table.
type VectorStore interface {
	// CreateTable stages a new version of the named table.
	CreateTable(ctx context.Context, name string, dimensions int) (TableBuilder, error)

	// Search returns up to limit rows ordered by descending similarity to
	// vector, ties broken by insertion position. A missing or empty table
	// yields no rows.
	Search(ctx context.Context, name string, vector []float32, limit int) ([]VectorRow, error)

	// CountRows returns the number of rows in the live table, 0 if missing.
	CountRows(ctx context.Context, name string) (int, error)

	// Close releases resources.
	Close() error
}

// TableBuilder writes a staged table. Exactly one of Commit or Abort must
// be called.
type TableBuilder interface {
	// Add appends records in order.
	Add(ctx context.Context, records []domain.IndexRecord) error

	// Commit atomically replaces the live table with the staged one.
	Commit(ctx context.Context) error

	// Abort discards the staged table. The live table is untouched.
	Abort(ctx context.Context) error
}

// VectorRow is one search hit.
type VectorRow struct {
	// Position is the record's insertion index within its table.
	Position int

	// Record is the stored record. Vector may be omitted by the store.
	Record domain.IndexRecord

	// Score is the cosine similarity to the query vector.
	Score float64
}
