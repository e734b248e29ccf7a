// Package tui is the interactive chat, search and settings interface.
package tui

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

var (
	ErrInvalidPorts               = errors.New("tui: invalid ports configuration")
	ErrMissingConversationService = errors.New("tui: conversation service is required")
)

// Ports aggregates the driving ports the TUI uses.
type Ports struct {
	// Conversation runs the chat session.
	Conversation driving.ConversationService

	// Assembler parses citations out of assembled context. Optional.
	Assembler driving.ContextAssembler

	// Search backs the passage search view. Optional.
	Search driving.RetrievalService

	// Settings backs the settings view. Optional.
	Settings driving.SettingsService

	// SearchK is how many passages the search view requests. Zero uses
	// the view's default.
	SearchK int
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil ports", ErrInvalidPorts)
	}
	if p.Conversation == nil {
		return ErrMissingConversationService
	}
	return nil
}
