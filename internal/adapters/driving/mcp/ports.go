package mcp

import (
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search retrieves chunks for a query.
	Search driving.RetrievalService

	// QA answers questions. Optional; ask_gdpr fails without it.
	QA driving.QAService

	// Index reports the live table. Optional.
	Index driving.IndexService

	// Assembler renders context for the context resource. Optional.
	Assembler driving.ContextAssembler
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
