package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// uriScheme prefixes every resource this server exposes.
const uriScheme = "index://"

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "stats",
		Name:        "stats",
		Description: "Row count of the live vector table",
		MIMEType:    "application/json",
	}, s.handleStatsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "context/{query}",
		Name:        "context",
		Description: "Assembled, cited context for a query as the chat prompt sees it",
		MIMEType:    "text/plain",
	}, s.handleContextResource)
}

func textResource(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}

type statsInfo struct {
	Available bool `json:"available"`
	Rows      int  `json:"rows"`
}

// handleStatsResource reports the live table's row count. Available is
// false when no embedding provider is configured.
func (s *Server) handleStatsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	var info statsInfo
	if s.ports.Index != nil {
		rows, err := s.ports.Index.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting rows: %w", err)
		}
		info = statsInfo{Available: true, Rows: rows}
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling stats: %w", err)
	}
	return textResource(req.Params.URI, "application/json", string(data)), nil
}

// handleContextResource retrieves and assembles the context for the
// query in the URI.
func (s *Server) handleContextResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	query := contextQuery(uri)
	if s.ports.Assembler == nil || query == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	results, err := s.ports.Search.Search(ctx, query, domain.SearchOptions{K: s.searchK})
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	return textResource(uri, "text/plain", s.ports.Assembler.Assemble(results)), nil
}

// contextQuery returns the unescaped, trimmed query of an
// index://context/{query} URI, or "" for any other URI.
func contextQuery(uri string) string {
	escaped, ok := strings.CutPrefix(uri, uriScheme+"context/")
	if !ok {
		return ""
	}
	query, err := url.PathUnescape(escaped)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(query)
}
