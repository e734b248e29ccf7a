package driven

// PromptStore hands out prompt templates by name. A template the user
// has not overridden falls back to the built-in text.
type PromptStore interface {
	Load(name string) (string, error)

	// Reload drops cached templates so edited files are picked up.
	Reload()
}

const (
	// PromptChatSystem is the system message of a chat turn. It must
	// contain {context}.
	PromptChatSystem = "chat_system"

	// PromptQA is the one-shot prompt of batch QA. It must contain
	// {context} and {question}.
	PromptQA = "qa"
)
