// Package file provides file-backed storage adapters.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// FormatVersion is bumped whenever the artifact layout changes. Artifacts
// of another version are treated as misses.
const FormatVersion = 1

// Ensure ChunkCache implements the interface.
var _ driven.ChunkCache = (*ChunkCache)(nil)

// ChunkCache stores the chunks of the last pipeline run in one JSON file.
type ChunkCache struct {
	path string
}

type artifact struct {
	Version  int            `json:"version"`
	Key      string         `json:"key"`
	StoredAt time.Time      `json:"stored_at"`
	Chunks   []domain.Chunk `json:"chunks"`
}

// NewChunkCache creates a chunk cache at path.
func NewChunkCache(path string) *ChunkCache {
	return &ChunkCache{path: path}
}

// Path returns the artifact location.
func (c *ChunkCache) Path() string {
	return c.path
}

// Load reads the artifact. A missing, unreadable or stale artifact is a miss.
func (c *ChunkCache) Load(ctx context.Context, key string) ([]domain.Chunk, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading chunk cache: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		logger.Warn("chunk cache %s is corrupt, ignoring: %v", c.path, err)
		return nil, false, nil
	}
	if a.Version != FormatVersion {
		logger.Debug("chunk cache %s has version %d, want %d", c.path, a.Version, FormatVersion)
		return nil, false, nil
	}
	if key != "" && a.Key != key {
		logger.Debug("chunk cache %s is stale", c.path)
		return nil, false, nil
	}
	return a.Chunks, true, nil
}

// Store writes the artifact through a temporary file and rename, so a
// crash never leaves a half-written cache behind.
func (c *ChunkCache) Store(ctx context.Context, key string, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	data, err := json.Marshal(artifact{
		Version:  FormatVersion,
		Key:      key,
		StoredAt: time.Now().UTC(),
		Chunks:   chunks,
	})
	if err != nil {
		return fmt.Errorf("encoding chunk cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".chunks-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing chunk cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing chunk cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing chunk cache: %w", err)
	}
	return nil
}

// Clear removes the artifact.
func (c *ChunkCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing chunk cache: %w", err)
	}
	return nil
}
