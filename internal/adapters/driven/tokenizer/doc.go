// Package tokenizer provides token counters for the chunk token budget.
//
// Tiktoken uses the BPE encoding of the configured embedding model, so a
// chunk that fits the budget also fits the model's input limit. Estimate is
// an offline fallback that approximates four bytes per token.
package tokenizer
