package driven

import "context"

// LexicalScorer scores candidate texts against a query by term matching.
// It provides the auxiliary signal of the reranker.
type LexicalScorer interface {
	// Score returns one non-negative score per text, in input order.
	// Texts that do not match score 0.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}
