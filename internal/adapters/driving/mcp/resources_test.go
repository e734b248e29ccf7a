package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

func TestContextQuery(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "plain query",
			uri:      "index://context/consent",
			expected: "consent",
		},
		{
			name:     "escaped query",
			uri:      "index://context/right%20to%20erasure",
			expected: "right to erasure",
		},
		{
			name:     "invalid prefix",
			uri:      "file://context/consent",
			expected: "",
		},
		{
			name:     "bad escape",
			uri:      "index://context/%zz",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, contextQuery(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("without index service", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, makeReadResourceRequest("index://stats"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, `"available": false`)
	})

	t.Run("reports row count", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Index: &mockIndexService{rows: 412}})
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, makeReadResourceRequest("index://stats"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"rows": 412`)
		assert.Contains(t, result.Contents[0].Text, `"available": true`)
	})

	t.Run("count failure", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Search: &mockSearchService{},
			Index:  &mockIndexService{err: errors.New("database is locked")},
		})
		require.NoError(t, err)

		_, err = server.handleStatsResource(ctx, makeReadResourceRequest("index://stats"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "counting rows")
	})
}

func TestServer_handleContextResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil assembler returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}})
		require.NoError(t, err)

		_, err = server.handleContextResource(ctx, makeReadResourceRequest("index://context/consent"))
		require.Error(t, err)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Assembler: mockAssembler{}})
		require.NoError(t, err)

		_, err = server.handleContextResource(ctx, makeReadResourceRequest("index://other"))
		require.Error(t, err)
	})

	t.Run("assembles retrieved passages", func(t *testing.T) {
		search := &mockSearchService{results: []domain.SearchResult{
			{Text: "Consent means any freely given indication."},
			{Text: "Conditions for consent."},
		}}
		server, err := NewServer(&Ports{Search: search, Assembler: mockAssembler{}}, WithSearchK(2))
		require.NoError(t, err)

		result, err := server.handleContextResource(ctx, makeReadResourceRequest("index://context/what%20is%20consent"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "Consent means any freely given indication.\n\nConditions for consent.", result.Contents[0].Text)
		assert.Equal(t, "what is consent", search.query)
		assert.Equal(t, 2, search.opts.K)
	})

	t.Run("search failure", func(t *testing.T) {
		search := &mockSearchService{err: domain.ErrEmbeddingUnavailable}
		server, err := NewServer(&Ports{Search: search, Assembler: mockAssembler{}})
		require.NoError(t, err)

		_, err = server.handleContextResource(ctx, makeReadResourceRequest("index://context/consent"))
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}
