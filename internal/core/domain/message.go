package domain

// Role identifies the author of a conversation message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is one entry of a conversation.
type Message struct {
	Role    Role
	Content string
}

// SessionState is the conversation session's turn state.
type SessionState int

// Session states. A turn moves Idle -> AwaitingContext -> AwaitingAnswer -> Idle.
const (
	SessionIdle SessionState = iota
	SessionAwaitingContext
	SessionAwaitingAnswer
)

// String returns a short name for the state.
func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionAwaitingContext:
		return "awaiting_context"
	case SessionAwaitingAnswer:
		return "awaiting_answer"
	default:
		return "unknown"
	}
}

// ApologyMessage is recorded as the assistant reply when generation fails.
const ApologyMessage = "Sorry, an error occurred while generating the response."

// TurnResult is the outcome of one conversation turn.
type TurnResult struct {
	// Answer is the assistant message appended to the history.
	Answer Message

	// Context is the assembled context the answer was grounded on.
	Context string

	// Results are the retrieved chunks behind Context.
	Results []SearchResult

	// Err is the generation error, if the answer is the apology.
	Err error
}
