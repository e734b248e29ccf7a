package driving

import (
	"context"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// ConversationService is a single conversation session.
type ConversationService interface {
	// Submit runs one turn for input. Answer fragments are passed to
	// onFragment as they arrive; it may be nil. Returns
	// domain.ErrSessionBusy when a turn is already in flight.
	// Generation failures do not return an error: the result carries the
	// apology message and the cause in TurnResult.Err.
	Submit(ctx context.Context, input string, onFragment func(string)) (*domain.TurnResult, error)

	// Messages returns a copy of the history.
	Messages() []domain.Message

	// State returns the current turn state.
	State() domain.SessionState

	// Clear empties the history. It is only valid while idle.
	Clear() error
}

// QAService answers standalone questions with the stricter, deterministic
// generation settings.
type QAService interface {
	// Ask retrieves context for question and answers it.
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}
