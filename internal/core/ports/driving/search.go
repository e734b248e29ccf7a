package driving

import (
	"context"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// RetrievalService finds the chunks most relevant to a query.
type RetrievalService interface {
	// Search returns up to opts.K results by non-increasing score, ties in
	// insertion order. An empty index yields no results and no error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// ContextAssembler renders retrieved chunks as prompt context.
type ContextAssembler interface {
	// Assemble joins the results' context blocks in order.
	Assemble(results []domain.SearchResult) string

	// Citations parses assembled context back into per-source blocks.
	Citations(context string) []domain.Citation
}
