package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	configfile "github.com/custodia-labs/gdprqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

func TestNewVectorStore(t *testing.T) {
	dir := t.TempDir()

	store, err := newVectorStore(context.Background(), domain.StoreSettings{Backend: domain.StoreBackendMemory}, dir)
	require.NoError(t, err)
	assert.IsType(t, &memory.VectorStore{}, store)

	store, err = newVectorStore(context.Background(), domain.StoreSettings{Backend: domain.StoreBackendSQLite}, dir)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, store)
	require.NoError(t, store.Close())

	_, err = newVectorStore(context.Background(), domain.StoreSettings{Backend: "lancedb"}, dir)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestCacheParams_ChangeWithChunkSettings(t *testing.T) {
	s := domain.DefaultAppSettings()
	base := cacheParams(&s)
	assert.Equal(t, "8191", base["max_tokens"])
	assert.Equal(t, "true", base["merge_peers"])

	s.Pipeline.MergePeers = false
	assert.NotEqual(t, base, cacheParams(&s))
}

func TestBuild_WithoutProviders(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")

	// The estimate tokenizer needs no BPE download.
	store, err := configfile.NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("pipeline.tokenizer", "estimate"))
	require.NoError(t, store.Save())

	app, err := build(context.Background(), dir)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.services.Settings)
	assert.NotNil(t, app.services.Pipeline)
	assert.NotNil(t, app.services.Watch)
	assert.NotNil(t, app.services.Metrics)
	assert.NotNil(t, app.services.Assembler)
	assert.Equal(t, 5, app.services.SearchK)

	// Without an embedding provider nothing can be indexed or retrieved.
	assert.Nil(t, app.services.Retrieval)
	assert.Nil(t, app.services.Conversation)
	assert.Nil(t, app.services.QA)
	assert.NoFileExists(t, filepath.Join(dir, "index.lock"))
}

func TestBuild_UnreachableVectorStore(t *testing.T) {
	dir := t.TempDir()
	inputDir := t.TempDir()

	store, err := configfile.NewConfigStore(dir)
	require.NoError(t, err)
	for key, value := range map[string]any{
		"pipeline.tokenizer":  "estimate",
		"pipeline.input_dir":  inputDir,
		"pipeline.cache_path": filepath.Join(dir, "chunks.cache"),
		"embedding.provider":  "ollama",
		"store.backend":       "redis",
		"store.redis_addr":    "127.0.0.1:1",
	} {
		require.NoError(t, store.Set(key, value))
	}
	require.NoError(t, store.Save())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	app, err := build(ctx, dir)
	require.NoError(t, err)
	defer app.Close()

	// Settings stay usable so the backend can be changed.
	assert.NotNil(t, app.services.Settings)
	assert.NotNil(t, app.services.Pipeline)
	assert.Nil(t, app.services.Index)
	assert.Nil(t, app.services.Retrieval)
	assert.Nil(t, app.services.Conversation)
	assert.Nil(t, app.services.QA)

	report, err := app.services.Pipeline.Run(ctx, driving.PipelineOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
	require.NotNil(t, report)
	assert.Nil(t, report.Index)

	_, err = app.services.Pipeline.Run(ctx, driving.PipelineOptions{SkipIndex: true})
	assert.NoError(t, err)
}

func TestDefaultConfigDir(t *testing.T) {
	t.Setenv("GDPRQA_HOME", "/srv/gdprqa")
	dir, err := defaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/gdprqa", dir)
}
