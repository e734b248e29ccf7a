package driving

import (
	"context"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// PipelineService runs extraction, chunking and indexing.
type PipelineService interface {
	// Run executes the full pipeline over the configured input directory.
	Run(ctx context.Context, opts PipelineOptions) (*domain.PipelineReport, error)

	// Extract converts every input file. Failed files are logged, skipped
	// and listed in the returned failures.
	Extract(ctx context.Context, inputDir string) ([]*domain.StructuredDocument, []string, error)

	// Chunk splits documents into chunks in document order.
	Chunk(ctx context.Context, docs []*domain.StructuredDocument) ([]domain.Chunk, error)
}

// PipelineOptions tunes a pipeline run.
type PipelineOptions struct {
	// InputDir overrides the configured input directory.
	InputDir string

	// SkipIndex stops after chunking.
	SkipIndex bool

	// NoCache ignores and does not write the chunk cache.
	NoCache bool

	// TrustCache reuses any existing cache artifact without checking its key.
	TrustCache bool
}

// IndexService builds the vector table.
type IndexService interface {
	// BuildIndex replaces the vector table with one record per non-empty
	// chunk. A failed batch aborts the build and leaves the previous table.
	BuildIndex(ctx context.Context, chunks []domain.Chunk) (*domain.IndexHandle, error)

	// Count returns the number of rows in the live table.
	Count(ctx context.Context) (int, error)
}
