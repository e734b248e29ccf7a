package driven

// Tokenizer reports token ids and counts for the chunk token budget.
// The tokenizer should match the embedding model so that chunks stay
// within its input limit.
type Tokenizer interface {
	// Name identifies the tokenizer and its encoding, e.g. "tiktoken:cl100k_base".
	// It is part of the chunk cache key.
	Name() string

	// Encode returns the token ids for text.
	Encode(text string) []int

	// Count returns the number of tokens in text.
	Count(text string) int
}
