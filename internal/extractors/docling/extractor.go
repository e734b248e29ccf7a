package docling

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Name identifies this extractor.
const Name = "docling"

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor loads previously exported docling JSON files.
type Extractor struct{}

// New creates a docling JSON extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name.
func (e *Extractor) Name() string {
	return Name
}

// Supports reports whether path is a JSON file.
func (e *Extractor) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Extract parses the docling export at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.StructuredDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseFile(path)
}
