package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// DefaultBatchSize is the number of chunks embedded and written per batch.
const DefaultBatchSize = 100

// IndexService builds the vector table from chunks.
//
// A build stages a new table and only swaps it in once every batch has
// been written, so readers see either the previous table or the complete
// new one. Builds are serialised in-process and across processes through
// the IndexLock.
type IndexService struct {
	store     driven.VectorStore
	embedder  driven.EmbeddingService
	lock      driven.IndexLock
	metrics   driven.Metrics
	table     string
	batchSize int
	now       func() time.Time

	mu sync.Mutex
}

// IndexOption configures an IndexService.
type IndexOption func(*IndexService)

// WithTable sets the vector table name (default "docling").
func WithTable(name string) IndexOption {
	return func(s *IndexService) {
		if name != "" {
			s.table = name
		}
	}
}

// WithBatchSize sets the batch size (default 100).
func WithBatchSize(n int) IndexOption {
	return func(s *IndexService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithIndexMetrics records batch metrics.
func WithIndexMetrics(m driven.Metrics) IndexOption {
	return func(s *IndexService) {
		s.metrics = metricsOrNop(m)
	}
}

// NewIndexService creates an index service. lock may be nil, in which case
// builds are only serialised within this process.
func NewIndexService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	lock driven.IndexLock,
	opts ...IndexOption,
) *IndexService {
	s := &IndexService{
		store:     store,
		embedder:  embedder,
		lock:      lock,
		metrics:   nopMetrics{},
		table:     "docling",
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the vector table name.
func (s *IndexService) Table() string {
	return s.table
}

// BuildIndex replaces the vector table with one record per non-empty chunk.
func (s *IndexService) BuildIndex(ctx context.Context, chunks []domain.Chunk) (*domain.IndexHandle, error) {
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil {
		if err := s.lock.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("acquire index lock: %w", err)
		}
		defer func() {
			if err := s.lock.Release(); err != nil {
				logger.Warn("release index lock: %v", err)
			}
		}()
	}

	logger.Section("Index Build")

	records := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if !c.IsBlank() {
			records = append(records, c)
		}
	}
	if skipped := len(chunks) - len(records); skipped > 0 {
		logger.Warn("index: skipping %d empty chunks", skipped)
	}

	dims := s.embedder.Dimensions()
	builder, err := s.store.CreateTable(ctx, s.table, dims)
	if err != nil {
		return nil, fmt.Errorf("%w: create table %s: %w", domain.ErrIndexBuild, s.table, err)
	}

	batches := (len(records) + s.batchSize - 1) / s.batchSize
	for b := 0; b < batches; b++ {
		start := b * s.batchSize
		end := min(start+s.batchSize, len(records))

		if err := s.writeBatch(ctx, builder, records[start:end], dims); err != nil {
			abort(ctx, builder)
			return nil, fmt.Errorf("%w: batch %d/%d: %w", domain.ErrIndexBuild, b+1, batches, err)
		}
		logger.Info("index: batch %d/%d written (%d chunks)", b+1, batches, end-start)
	}

	if err := builder.Commit(ctx); err != nil {
		abort(ctx, builder)
		return nil, fmt.Errorf("%w: commit: %w", domain.ErrIndexBuild, err)
	}

	rows, err := s.store.CountRows(ctx, s.table)
	if err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	if rows != len(records) {
		return nil, fmt.Errorf("%w: table %s has %d rows, expected %d",
			domain.ErrRowCountMismatch, s.table, rows, len(records))
	}

	logger.Info("index: table %s built with %d rows", s.table, rows)

	return &domain.IndexHandle{
		Table:      s.table,
		Rows:       rows,
		Dimensions: dims,
		Model:      s.embedder.ModelName(),
		BuiltAt:    s.now(),
	}, nil
}

// writeBatch embeds one batch and appends it to the staged table.
func (s *IndexService) writeBatch(
	ctx context.Context,
	builder driven.TableBuilder,
	batch []domain.Chunk,
	dims int,
) error {
	started := time.Now()

	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(batch))
	}

	records := make([]domain.IndexRecord, len(batch))
	for i, c := range batch {
		if len(vectors[i]) != dims {
			return fmt.Errorf("embed: vector %d has %d dimensions, expected %d", i, len(vectors[i]), dims)
		}
		records[i] = domain.IndexRecord{
			Text:     c.Text,
			Vector:   vectors[i],
			Metadata: domain.DeriveMetadata(c),
		}
	}

	if err := builder.Add(ctx, records); err != nil {
		return fmt.Errorf("add: %w", err)
	}

	s.metrics.BatchIndexed(len(batch), time.Since(started))
	return nil
}

// Count returns the number of rows in the live table.
func (s *IndexService) Count(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, domain.ErrVectorStoreUnavailable
	}
	return s.store.CountRows(ctx, s.table)
}

func abort(ctx context.Context, builder driven.TableBuilder) {
	if err := builder.Abort(ctx); err != nil {
		logger.Warn("index: discard staged table: %v", err)
	}
}
