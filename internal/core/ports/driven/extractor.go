package driven

import (
	"context"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// Extractor converts a source file into a structured document.
// The conversion engine itself (layout analysis, OCR, table structure) is
// external; extractors only adapt its output.
type Extractor interface {
	// Name returns the extractor name for logging.
	Name() string

	// Supports reports whether the extractor accepts the file at path.
	Supports(path string) bool

	// Extract converts the file. A document without content items is
	// returned as an empty document, not an error.
	Extract(ctx context.Context, path string) (*domain.StructuredDocument, error)
}

// ExtractorRegistry selects an extractor for a file.
type ExtractorRegistry interface {
	// For returns the extractor for path, or domain.ErrUnsupportedDocument.
	For(path string) (Extractor, error)
}
