package mcp

import (
	"context"
	"strings"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.RetrievalService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	query   string
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.query = query
	m.opts = opts
	return m.results, m.err
}

// mockQAService is a mock implementation of driving.QAService.
type mockQAService struct {
	answer *domain.Answer
	err    error
}

func (m *mockQAService) Ask(_ context.Context, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	rows int
	err  error
}

func (m *mockIndexService) BuildIndex(context.Context, []domain.Chunk) (*domain.IndexHandle, error) {
	return nil, m.err
}

func (m *mockIndexService) Count(context.Context) (int, error) {
	return m.rows, m.err
}

// mockAssembler joins result texts.
type mockAssembler struct{}

func (mockAssembler) Assemble(results []domain.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\n\n")
}

func (mockAssembler) Citations(string) []domain.Citation {
	return nil
}

func strPtr(s string) *string {
	return &s
}
