package driven

import (
	"context"
	"iter"
)

// LLMService writes answers. It is optional: without one the commands
// that only retrieve still work.
type LLMService interface {
	// Chat returns the whole reply to messages.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream yields the reply in fragments whose concatenation is
	// what Chat would return. A failure is yielded once, with an empty
	// fragment, and ends the sequence.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions) iter.Seq2[string, error]

	ModelName() string

	// Ping checks reachability and credentials without generating text.
	Ping(ctx context.Context) error

	Close() error
}

// ChatMessage is one entry of the prompt. Role is "system", "user" or
// "assistant".
type ChatMessage struct {
	Role    string
	Content string
}

type ChatOptions struct {
	// MaxTokens caps the reply; zero leaves it to the provider.
	MaxTokens int

	// Temperature is always sent, so the zero value asks for the most
	// deterministic output the model gives.
	Temperature float64
}
