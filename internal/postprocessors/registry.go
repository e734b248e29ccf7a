package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// BuilderFunc creates a processor from its table in the pipeline
// configuration. The map is nil when the table is absent.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps processor names to builders so chunking stages can be
// chosen and ordered from configuration.
type Registry struct {
	builders map[string]BuilderFunc
}

func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds or replaces the builder for name, which should match the
// processor's Name.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates the processor called name.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	if builder, ok := r.builders[name]; ok {
		return builder(cfg)
	}
	return nil, fmt.Errorf("unknown processor %q: %w", name, domain.ErrUnsupportedType)
}

func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names lists the registered processors in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}

// BuildPipeline builds cfg.Processors in order. A builder error names the
// stage that failed.
func (r *Registry) BuildPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		return nil, fmt.Errorf("pipeline has no processors: %w", domain.ErrInvalidInput)
	}

	pipeline := NewPipeline()
	for i, name := range cfg.Processors {
		processor, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i+1, err)
		}
		pipeline.Add(processor)
	}
	return pipeline, nil
}
