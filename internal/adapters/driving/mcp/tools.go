package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// defaultSearchK is used when neither the request nor the server sets k.
const defaultSearchK = 5

// maxSearchK bounds the k a client may ask search_gdpr for.
const maxSearchK = 50

// SearchInput is the input schema for the search_gdpr tool.
type SearchInput struct {
	Query  string `json:"query" jsonschema:"the question or keywords to look up in the GDPR text"`
	K      int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (default 5, at most 50)"`
	Rerank bool   `json:"rerank,omitempty" jsonschema:"blend vector similarity with keyword relevance"`
}

// SearchOutput is the output schema for the search_gdpr tool.
type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput is one retrieved passage with its citation.
type PassageOutput struct {
	Rank        int     `json:"rank"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	Filename    string  `json:"filename,omitempty"`
	PageNumbers []int   `json:"page_numbers,omitempty"`
}

// AskInput is the input schema for the ask_gdpr tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"a question about the GDPR"`
}

// AskOutput is the output schema for the ask_gdpr tool.
type AskOutput struct {
	Answer  string          `json:"answer"`
	Sources []PassageOutput `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_gdpr",
		Description: "Find the GDPR passages most relevant to a query, with source file, pages and section title",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask_gdpr",
		Description: "Answer a question about the GDPR from retrieved passages and cite them",
	}, s.handleAsk)
}

// handleSearch handles the search_gdpr tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	k := min(input.K, maxSearchK)
	if k <= 0 {
		k = s.searchK
	}

	opts := domain.SearchOptions{
		K:            k,
		Rerank:       input.Rerank,
		RerankWeight: domain.DefaultRerankWeight,
	}
	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Results: toPassages(results),
		Count:   len(results),
	}, nil
}

// handleAsk handles the ask_gdpr tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.QA == nil {
		return nil, AskOutput{}, ErrQAUnavailable
	}

	answer, err := s.ports.QA.Ask(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:  answer.Text,
		Sources: toPassages(answer.Sources),
	}, nil
}

func toPassages(results []domain.SearchResult) []PassageOutput {
	out := make([]PassageOutput, len(results))
	for i, r := range results {
		c := domain.Citation{Text: r.Text, Metadata: r.Metadata}
		out[i] = PassageOutput{
			Rank:        i + 1,
			Score:       r.Score,
			Text:        r.Text,
			Source:      c.Source(),
			Title:       c.Title(),
			Filename:    r.Metadata.FilenameOr(""),
			PageNumbers: r.Metadata.PageNumbers,
		}
	}
	return out
}
