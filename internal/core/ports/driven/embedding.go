package driven

import "context"

// EmbeddingService turns passages and questions into vectors. Queries
// must be embedded with the model the table was built with; the table
// records that model but a mismatch is not checked.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order. Providers
	// that accept batches send them in a single request.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector width, fixed by the model.
	Dimensions() int

	ModelName() string

	// Ping makes the cheapest request that proves the provider answers
	// and accepts the credentials.
	Ping(ctx context.Context) error

	Close() error
}
