package services

import (
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

// Ensure ContextAssembler implements the interface.
var _ driving.ContextAssembler = (*ContextAssembler)(nil)

// ContextAssembler renders search results into the context block handed to
// the model, and recovers citations from such a block.
type ContextAssembler struct{}

// NewContextAssembler creates a context assembler.
func NewContextAssembler() *ContextAssembler {
	return &ContextAssembler{}
}

// Assemble renders each result as its text followed by its citation lines,
// in result order.
func (a *ContextAssembler) Assemble(results []domain.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, domain.RenderBlock(r))
	}
	return domain.JoinBlocks(blocks)
}

// Citations parses an assembled context back into text and metadata pairs.
func (a *ContextAssembler) Citations(context string) []domain.Citation {
	return domain.ParseContext(context)
}
