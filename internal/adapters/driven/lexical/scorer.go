// Package lexical scores candidate passages by term overlap with a query
// using an in-memory bleve index.
package lexical

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Ensure Scorer implements the interface.
var _ driven.LexicalScorer = (*Scorer)(nil)

type passage struct {
	Text string `json:"text"`
}

// Scorer indexes each candidate set in a throwaway in-memory index and
// returns the BM25 score of every passage. Text is analysed with the
// English analyzer, so "processing" matches "processed".
type Scorer struct {
	analyzer string
}

// New creates a scorer with the English analyzer.
func New() *Scorer {
	return &Scorer{analyzer: en.AnalyzerName}
}

// Score returns one score per text, 0 for texts that do not match.
func (s *Scorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	if len(texts) == 0 || query == "" {
		return scores, nil
	}

	mapping := bleve.NewIndexMapping()
	mapping.DefaultAnalyzer = s.analyzer
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("creating lexical index: %w", err)
	}
	defer idx.Close()

	batch := idx.NewBatch()
	for i, text := range texts {
		if err := batch.Index(strconv.Itoa(i), passage{Text: text}); err != nil {
			return nil, fmt.Errorf("indexing passage %d: %w", i, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("indexing passages: %w", err)
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequestOptions(q, len(texts), 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	for _, hit := range res.Hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil || i < 0 || i >= len(texts) {
			continue
		}
		scores[i] = hit.Score
	}
	return scores, nil
}
