package mcp

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns passages with citations", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{
				{
					Text: "The data subject shall have the right to obtain erasure.",
					Metadata: domain.ChunkMetadata{
						Filename:    strPtr("gdpr.pdf"),
						PageNumbers: []int{43, 44},
						Title:       strPtr("Article 17"),
					},
					Score: 0.91,
				},
				{Text: "Untitled passage", Score: 0.5},
			},
		}

		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		input := SearchInput{Query: "right to erasure", K: 2, Rerank: true}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		require.Len(t, output.Results, 2)

		first := output.Results[0]
		assert.Equal(t, 1, first.Rank)
		assert.Equal(t, 0.91, first.Score)
		assert.Equal(t, "gdpr.pdf - p. 43, 44", first.Source)
		assert.Equal(t, "Article 17", first.Title)
		assert.Equal(t, "gdpr.pdf", first.Filename)
		assert.Equal(t, []int{43, 44}, first.PageNumbers)

		second := output.Results[1]
		assert.Equal(t, 2, second.Rank)
		assert.Equal(t, domain.UnknownSource, second.Source)
		assert.Equal(t, domain.UntitledSection, second.Title)

		assert.Equal(t, "right to erasure", mockSearch.query)
		assert.Equal(t, domain.SearchOptions{K: 2, Rerank: true, RerankWeight: 0.3}, mockSearch.opts)
	})

	t.Run("default k", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "consent"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, defaultSearchK, mockSearch.opts.K)
		assert.False(t, mockSearch.opts.Rerank)
	})

	t.Run("k is clamped", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "consent", K: math.MaxInt, Rerank: true})

		require.NoError(t, err)
		assert.Equal(t, maxSearchK, mockSearch.opts.K)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{
			err: errors.New("search failed"),
		}

		server, err := NewServer(&Ports{Search: mockSearch})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer and sources", func(t *testing.T) {
		qa := &mockQAService{answer: &domain.Answer{
			Question: "Who appoints the DPO?",
			Text:     "The controller and the processor.",
			Sources: []domain.SearchResult{
				{Text: "The controller and the processor shall designate...", Score: 0.8,
					Metadata: domain.ChunkMetadata{Title: strPtr("Article 37")}},
			},
		}}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, QA: qa})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{Question: "Who appoints the DPO?"})

		require.NoError(t, err)
		assert.Equal(t, "The controller and the processor.", output.Answer)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "Article 37", output.Sources[0].Title)
	})

	t.Run("without QA service", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q"})
		assert.ErrorIs(t, err, ErrQAUnavailable)
	})

	t.Run("propagates QA error", func(t *testing.T) {
		qa := &mockQAService{err: domain.ErrLLMUnavailable}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, QA: qa})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q"})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}
