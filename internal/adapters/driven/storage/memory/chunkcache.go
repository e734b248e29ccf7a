package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Ensure ChunkCache implements the interface.
var _ driven.ChunkCache = (*ChunkCache)(nil)

// ChunkCache is an in-memory implementation of driven.ChunkCache.
type ChunkCache struct {
	mu     sync.RWMutex
	key    string
	chunks []domain.Chunk
	stored bool
}

// NewChunkCache creates an empty in-memory chunk cache.
func NewChunkCache() *ChunkCache {
	return &ChunkCache{}
}

// Load returns the stored chunks when key matches.
func (c *ChunkCache) Load(_ context.Context, key string) ([]domain.Chunk, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.stored || (key != "" && key != c.key) {
		return nil, false, nil
	}
	out := make([]domain.Chunk, len(c.chunks))
	copy(out, c.chunks)
	return out, true, nil
}

// Store replaces the cached chunks.
func (c *ChunkCache) Store(_ context.Context, key string, chunks []domain.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.chunks = make([]domain.Chunk, len(chunks))
	copy(c.chunks, chunks)
	c.stored = true
	return nil
}

// Clear drops the cached chunks.
func (c *ChunkCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key, c.chunks, c.stored = "", nil, false
	return nil
}

// Path returns ":memory:".
func (c *ChunkCache) Path() string {
	return ":memory:"
}
