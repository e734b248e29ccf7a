// Package emptyfilter drops chunks without visible text.
package emptyfilter

import (
	"context"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Name is the registry name of the processor.
const Name = "drop_empty"

// Processor removes whitespace-only chunks and logs one warning per
// document with the number removed.
type Processor struct{}

// New creates the filter.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process returns the non-blank chunks in their original order.
func (p *Processor) Process(_ context.Context, doc *domain.StructuredDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if !c.IsBlank() {
			kept = append(kept, c)
		}
	}

	if dropped := len(chunks) - len(kept); dropped > 0 {
		name := ""
		if doc != nil {
			name = doc.Filename
		}
		logger.Warn("%s: dropped %d empty chunks", name, dropped)
	}

	return kept, nil
}
