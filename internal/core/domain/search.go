package domain

// DefaultRerankWeight is the weight of the vector score in the linear
// combination reranker. The lexical score gets the remainder.
const DefaultRerankWeight = 0.3

// SearchOptions configures a retrieval query.
type SearchOptions struct {
	// K is the number of results. Must be positive.
	K int

	// Rerank enables the linear-combination reranking pass.
	Rerank bool

	// RerankWeight is the vector score weight in [0, 1].
	RerankWeight float64

	// Oversample multiplies K to size the candidate set when reranking.
	Oversample int
}

// SearchResult is a ranked hit. It is produced per query and never stored.
type SearchResult struct {
	Text     string
	Metadata ChunkMetadata
	Score    float64
}

// Answer is a grounded answer from the batch QA flow.
type Answer struct {
	Question string
	Text     string
	Sources  []SearchResult
}

// Clip truncates text to at most threshold runes and appends "..." when it
// was shortened.
func Clip(text string, threshold int) string {
	runes := []rune(text)
	if len(runes) <= threshold {
		return text
	}
	return string(runes[:threshold]) + "..."
}
