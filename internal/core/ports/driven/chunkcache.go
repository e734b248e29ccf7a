package driven

import (
	"context"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// ChunkCache persists the chunks of one pipeline run in a single artifact.
type ChunkCache interface {
	// Load returns the cached chunks when the artifact exists and was
	// stored under key. An empty key accepts any existing artifact.
	// A missing or stale artifact is a miss, not an error.
	Load(ctx context.Context, key string) ([]domain.Chunk, bool, error)

	// Store replaces the artifact with chunks stored under key.
	Store(ctx context.Context, key string, chunks []domain.Chunk) error

	// Clear removes the artifact. Clearing a missing artifact is a no-op.
	Clear() error

	// Path returns the artifact location.
	Path() string
}
