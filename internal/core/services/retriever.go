package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultOversample is how many candidates per requested result are fetched
// when reranking.
const DefaultOversample = 3

// MaxCandidates caps the candidate set fetched for reranking.
const MaxCandidates = 1000

// RetrievalService answers similarity queries against the vector table.
type RetrievalService struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
	lexical  driven.LexicalScorer
	metrics  driven.Metrics
	table    string
}

// RetrievalOption configures a RetrievalService.
type RetrievalOption func(*RetrievalService)

// WithRetrievalTable sets the table searched (default "docling").
func WithRetrievalTable(name string) RetrievalOption {
	return func(s *RetrievalService) {
		if name != "" {
			s.table = name
		}
	}
}

// WithLexicalScorer enables lexical reranking.
func WithLexicalScorer(l driven.LexicalScorer) RetrievalOption {
	return func(s *RetrievalService) {
		s.lexical = l
	}
}

// WithRetrievalMetrics records search metrics.
func WithRetrievalMetrics(m driven.Metrics) RetrievalOption {
	return func(s *RetrievalService) {
		s.metrics = metricsOrNop(m)
	}
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	opts ...RetrievalOption,
) *RetrievalService {
	s := &RetrievalService{
		store:    store,
		embedder: embedder,
		metrics:  nopMetrics{},
		table:    "docling",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// candidate is a scored row with its original rank.
type candidate struct {
	row   driven.VectorRow
	score float64
	rank  int
}

// Search returns at most opts.K results ordered by descending score. Equal
// scores keep table order. With opts.Rerank the vector scores of an
// oversampled candidate set are blended with lexical scores.
func (s *RetrievalService) Search(
	ctx context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if opts.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, opts.K)
	}
	if strings.TrimSpace(query) == "" {
		return []domain.SearchResult{}, nil
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	started := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rerank := opts.Rerank && s.lexical != nil
	if opts.Rerank && s.lexical == nil {
		logger.Debug("retrieval: rerank requested without a lexical scorer")
	}

	limit := opts.K
	if rerank {
		oversample := opts.Oversample
		if oversample < 1 {
			oversample = DefaultOversample
		}
		// Bounded before multiplying so a huge K cannot overflow.
		limit = max(opts.K, min(oversample, MaxCandidates/opts.K)*opts.K)
	}

	rows, err := s.store.Search(ctx, s.table, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	candidates := make([]candidate, len(rows))
	for i, r := range rows {
		candidates[i] = candidate{row: r, score: r.Score, rank: i}
	}

	if rerank && len(candidates) > 0 {
		weight := opts.RerankWeight
		if weight < 0 || weight > 1 {
			weight = domain.DefaultRerankWeight
		}
		if err := s.rerank(ctx, query, candidates, weight); err != nil {
			logger.Warn("retrieval: rerank failed, keeping vector order: %v", err)
		}
	}

	sortCandidates(candidates)
	if len(candidates) > opts.K {
		candidates = candidates[:opts.K]
	}

	results := make([]domain.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = domain.SearchResult{
			Text:     c.row.Record.Text,
			Metadata: c.row.Record.Metadata,
			Score:    c.score,
		}
	}

	s.metrics.SearchServed(len(results), time.Since(started))
	logger.Debug("retrieval: %d results for %q", len(results), domain.Clip(query, 60))
	return results, nil
}

// rerank replaces each candidate score with weight*vector + (1-weight)*lexical,
// where lexical scores are scaled into [0,1] by the best lexical score.
// On error the candidates are left untouched.
func (s *RetrievalService) rerank(ctx context.Context, query string, candidates []candidate, weight float64) error {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.row.Record.Text
	}

	lexical, err := s.lexical.Score(ctx, query, texts)
	if err != nil {
		return err
	}
	if len(lexical) != len(candidates) {
		return fmt.Errorf("lexical scorer returned %d scores for %d texts", len(lexical), len(candidates))
	}

	var best float64
	for _, l := range lexical {
		best = max(best, l)
	}

	for i := range candidates {
		var lex float64
		if best > 0 {
			lex = lexical[i] / best
		}
		candidates[i].score = weight*candidates[i].row.Score + (1-weight)*lex
	}
	return nil
}

// sortCandidates orders by descending score, then by table position.
func sortCandidates(c []candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].score != c[j].score {
			return c[i].score > c[j].score
		}
		if c[i].row.Position != c[j].row.Position {
			return c[i].row.Position < c[j].row.Position
		}
		return c[i].rank < c[j].rank
	})
}
