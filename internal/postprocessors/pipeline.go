// Package postprocessors turns structured documents into chunks.
package postprocessors

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline runs processors in order, each one receiving the chunks of
// the one before. The first stage gets nil and creates the chunks.
type Pipeline struct {
	stages []driven.PostProcessor
}

func NewPipeline(stages ...driven.PostProcessor) *Pipeline {
	return &Pipeline{stages: stages}
}

// Process chunks doc. Stages that forget the origin filename have it
// filled in from doc, since citations depend on it.
func (p *Pipeline) Process(ctx context.Context, doc *domain.StructuredDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("nil document: %w", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		out, err := stage.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		logger.Debug("%s: %s %d -> %d chunks in %s",
			doc.Name, stage.Name(), len(chunks), len(out), time.Since(start).Round(time.Millisecond))
		chunks = out
	}

	for i := range chunks {
		if chunks[i].OriginFilename == "" {
			chunks[i].OriginFilename = doc.Filename
		}
	}
	return chunks, nil
}

func (p *Pipeline) Add(stage driven.PostProcessor) {
	p.stages = append(p.stages, stage)
}

func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Names lists the stages in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
