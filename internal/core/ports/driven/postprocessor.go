package driven

import (
	"context"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// PostProcessor is one stage of turning a structured document into
// chunks. The first stage receives nil chunks and creates them; later
// stages filter or rewrite what they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.StructuredDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs the configured stages in order.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.StructuredDocument) ([]domain.Chunk, error)

	// Names lists the stages, first to last.
	Names() []string
}
