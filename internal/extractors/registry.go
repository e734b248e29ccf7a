package extractors

import (
	"fmt"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry selects an extractor by file path.
type Registry struct {
	extractors []driven.Extractor
}

// NewRegistry creates a registry. Order matters: earlier extractors win.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// Register appends an extractor.
func (r *Registry) Register(e driven.Extractor) {
	r.extractors = append(r.extractors, e)
}

// For returns the first extractor supporting path.
func (r *Registry) For(path string) (driven.Extractor, error) {
	for _, e := range r.extractors {
		if e.Supports(path) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", path, domain.ErrUnsupportedDocument)
}

// Names returns the registered extractor names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.extractors))
	for i, e := range r.extractors {
		names[i] = e.Name()
	}
	return names
}
