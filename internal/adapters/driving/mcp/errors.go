// Package mcp provides an MCP (Model Context Protocol) server adapter for gdprqa.
// It lets AI assistants search the GDPR index and ask grounded questions.
package mcp

import "errors"

// ErrMissingSearchService is returned when the retrieval service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrQAUnavailable is returned by ask_gdpr when no QA service is wired,
// typically because no LLM provider is configured.
var ErrQAUnavailable = errors.New("mcp: question answering is not configured")
