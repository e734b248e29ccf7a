package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/vector"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Search is an exact scan.
type VectorStore struct {
	mu     sync.RWMutex
	tables map[string]*vectorTable
}

type vectorTable struct {
	dims    int
	records []domain.IndexRecord
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{tables: make(map[string]*vectorTable)}
}

// CreateTable stages a new version of the named table.
func (s *VectorStore) CreateTable(_ context.Context, name string, dimensions int) (driven.TableBuilder, error) {
	if name == "" || dimensions <= 0 {
		return nil, fmt.Errorf("%w: table %q with %d dimensions", domain.ErrInvalidInput, name, dimensions)
	}
	return &tableBuilder{store: s, name: name, staged: &vectorTable{dims: dimensions}}, nil
}

// Search scores every row of the live table against vector.
func (s *VectorStore) Search(ctx context.Context, name string, vec []float32, limit int) ([]driven.VectorRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	t := s.tables[name]
	s.mu.RUnlock()
	if t == nil || len(t.records) == 0 {
		return nil, nil
	}
	if len(vec) != t.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, table %q has %d",
			domain.ErrInvalidInput, len(vec), name, t.dims)
	}

	rows := make([]driven.VectorRow, len(t.records))
	for i, rec := range t.records {
		rows[i] = driven.VectorRow{Position: i, Record: rec, Score: vector.Cosine(vec, rec.Vector)}
	}
	return vector.Rank(rows, limit), nil
}

// CountRows returns the number of rows in the live table.
func (s *VectorStore) CountRows(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.tables[name]; t != nil {
		return len(t.records), nil
	}
	return 0, nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}

type tableBuilder struct {
	store  *VectorStore
	name   string
	staged *vectorTable
	done   bool
}

func (b *tableBuilder) Add(ctx context.Context, records []domain.IndexRecord) error {
	if b.done {
		return domain.ErrInvalidState
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// A batch is staged whole or not at all.
	for i, rec := range records {
		if len(rec.Vector) != b.staged.dims {
			return fmt.Errorf("%w: record %d has %d dimensions, want %d",
				domain.ErrInvalidInput, i, len(rec.Vector), b.staged.dims)
		}
	}
	b.staged.records = append(b.staged.records, records...)
	return nil
}

func (b *tableBuilder) Commit(_ context.Context) error {
	if b.done {
		return domain.ErrInvalidState
	}
	b.done = true
	b.store.mu.Lock()
	b.store.tables[b.name] = b.staged
	b.store.mu.Unlock()
	return nil
}

func (b *tableBuilder) Abort(_ context.Context) error {
	if b.done {
		return nil
	}
	b.done = true
	b.staged = nil
	return nil
}
