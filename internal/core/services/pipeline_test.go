package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/extractors"
	"github.com/custodia-labs/gdprqa/internal/extractors/markdown"
	"github.com/custodia-labs/gdprqa/internal/postprocessors"
)

// brokenPDF fails every conversion.
type brokenPDF struct{}

func (brokenPDF) Name() string { return "pdf" }

func (brokenPDF) Supports(path string) bool { return strings.HasSuffix(path, ".pdf") }

func (brokenPDF) Extract(context.Context, string) (*domain.StructuredDocument, error) {
	return nil, domain.ErrExtractionFailed
}

// countingExtractor wraps the markdown extractor and counts conversions.
type countingExtractor struct {
	*markdown.Extractor
	calls int
}

func (c *countingExtractor) Extract(ctx context.Context, path string) (*domain.StructuredDocument, error) {
	c.calls++
	return c.Extractor.Extract(ctx, path)
}

type pipelineFixture struct {
	dir      string
	md       *countingExtractor
	cache    *memory.ChunkCache
	store    *memory.VectorStore
	metrics  *recordingMetrics
	pipeline *PipelineService
}

func newPipelineFixture(t *testing.T, opts ...PipelineOption) *pipelineFixture {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gdpr.md"), "# Article 5\n\nPersonal data shall be processed lawfully.\n\nCollected for specified purposes.\n")
	writeFile(t, filepath.Join(dir, "sub", "dpa.md"), "# Article 37\n\nThe controller shall designate a data protection officer.\n")
	writeFile(t, filepath.Join(dir, "scan.pdf"), "%PDF-1.7")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not an input")

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, tokenizer.Estimate{})
	chunker, err := registry.BuildPipeline(domain.DefaultPipelineConfig())
	require.NoError(t, err)

	f := &pipelineFixture{
		dir:     dir,
		md:      &countingExtractor{Extractor: markdown.New()},
		cache:   memory.NewChunkCache(),
		store:   memory.NewVectorStore(),
		metrics: newRecordingMetrics(),
	}
	indexer := NewIndexService(f.store, newMockEmbedder(3), nil)

	opts = append([]PipelineOption{WithPipelineMetrics(f.metrics), WithInputDir(dir)}, opts...)
	f.pipeline = NewPipelineService(
		extractors.NewRegistry(f.md, brokenPDF{}),
		chunker,
		f.cache,
		indexer,
		opts...,
	)
	return f
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestPipelineService_Run(t *testing.T) {
	f := newPipelineFixture(t)

	report, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, []string{filepath.Join(f.dir, "scan.pdf")}, report.Failed)
	assert.Equal(t, 2, report.Chunks)
	assert.False(t, report.CacheHit)
	assert.Len(t, report.CacheKey, 64)
	require.NotNil(t, report.Index)
	assert.Equal(t, 2, report.Index.Rows)

	assert.Equal(t, 2, f.metrics.extracted[true])
	assert.Equal(t, 1, f.metrics.extracted[false])
	assert.Equal(t, 2, f.metrics.chunks)

	count, err := f.store.CountRows(context.Background(), "docling")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPipelineService_Run_CacheHitSkipsExtraction(t *testing.T) {
	f := newPipelineFixture(t)

	first, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{SkipIndex: true})
	require.NoError(t, err)
	require.Equal(t, 2, f.md.calls)

	second, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{SkipIndex: true})
	require.NoError(t, err)

	assert.True(t, second.CacheHit)
	assert.Equal(t, first.CacheKey, second.CacheKey)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, 2, f.md.calls, "cache hit must not re-extract")
	assert.Nil(t, second.Index)
}

func TestPipelineService_Run_ContentChangeInvalidatesCache(t *testing.T) {
	f := newPipelineFixture(t)

	first, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{SkipIndex: true})
	require.NoError(t, err)

	writeFile(t, filepath.Join(f.dir, "gdpr.md"), "# Article 6\n\nProcessing shall be lawful only if consent is given.\n")

	second, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{SkipIndex: true})
	require.NoError(t, err)

	assert.False(t, second.CacheHit)
	assert.NotEqual(t, first.CacheKey, second.CacheKey)
	assert.Equal(t, 4, f.md.calls)
}

func TestPipelineService_Run_ParamsChangeCacheKey(t *testing.T) {
	a := newPipelineFixture(t, WithCacheParams(map[string]string{"max_tokens": "8191"}))
	b := newPipelineFixture(t, WithCacheParams(map[string]string{"max_tokens": "512"}))

	files, err := a.pipeline.discover(a.dir)
	require.NoError(t, err)

	keyA, err := a.pipeline.cacheKey(a.dir, files)
	require.NoError(t, err)
	keyB, err := b.pipeline.cacheKey(a.dir, files)
	require.NoError(t, err)
	assert.NotEqual(t, keyA, keyB)
}

func TestPipelineService_Run_NoCacheRechunks(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{SkipIndex: true})
	require.NoError(t, err)

	report, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{SkipIndex: true, NoCache: true})
	require.NoError(t, err)
	assert.False(t, report.CacheHit)
	assert.Equal(t, 4, f.md.calls)
}

func TestPipelineService_Run_TrustCache(t *testing.T) {
	f := newPipelineFixture(t)
	require.NoError(t, f.cache.Store(context.Background(), "some-old-key", []domain.Chunk{{Text: "cached"}}))

	report, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{SkipIndex: true, TrustCache: true})
	require.NoError(t, err)

	assert.True(t, report.CacheHit)
	assert.Equal(t, 1, report.Chunks)
	assert.Empty(t, report.CacheKey)
	assert.Zero(t, f.md.calls)
}

func TestPipelineService_Run_EmptyDirectory(t *testing.T) {
	f := newPipelineFixture(t)
	empty := t.TempDir()

	report, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{InputDir: empty})
	require.NoError(t, err)
	assert.Zero(t, report.Documents)
	assert.Zero(t, report.Chunks)
	require.NotNil(t, report.Index)
	assert.Zero(t, report.Index.Rows)
}

func TestPipelineService_Run_MissingDirectory(t *testing.T) {
	f := newPipelineFixture(t)

	_, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{InputDir: filepath.Join(f.dir, "nope")})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPipelineService_Run_IndexFailure(t *testing.T) {
	f := newPipelineFixture(t)
	embedder := newMockEmbedder(3)
	embedder.failAt = 1
	embedder.err = errors.New("unauthorised")
	f.pipeline.indexer = NewIndexService(f.store, embedder, nil)

	report, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexBuild)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Chunks)
	assert.Nil(t, report.Index)
}

func TestPipelineService_Run_WithoutIndexer(t *testing.T) {
	f := newPipelineFixture(t)
	f.pipeline.indexer = nil

	report, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Chunks)
	assert.Nil(t, report.Index)

	report, err = f.pipeline.Run(context.Background(), driving.PipelineOptions{SkipIndex: true})
	require.NoError(t, err)
	assert.True(t, report.CacheHit)
}

func TestPipelineService_Run_IndexUnavailableReason(t *testing.T) {
	f := newPipelineFixture(t, WithIndexUnavailable(domain.ErrVectorStoreUnavailable))
	f.pipeline.indexer = nil

	_, err := f.pipeline.Run(context.Background(), driving.PipelineOptions{})
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestPipelineService_Extract(t *testing.T) {
	f := newPipelineFixture(t, WithInclude("**/*.md"))

	docs, failed, err := f.pipeline.Extract(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, docs, 2)
	assert.Equal(t, "gdpr.md", docs[0].Filename)
	assert.Equal(t, "dpa.md", docs[1].Filename)
}

func TestPipelineService_ExcludeDir(t *testing.T) {
	f := newPipelineFixture(t, WithInclude("**/*.md"))
	f.pipeline.exclude = []string{filepath.Join(f.dir, "sub")}

	docs, _, err := f.pipeline.Extract(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "gdpr.md", docs[0].Filename)
}

func TestPipelineService_Chunk(t *testing.T) {
	f := newPipelineFixture(t)
	doc := markdown.Parse("# Art. 5\n\nLawfulness.\n\nFairness.\n\nTransparency.\n", "gdpr.md")

	chunks, err := f.pipeline.Chunk(context.Background(), []*domain.StructuredDocument{doc})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Art. 5", domain.DeriveMetadata(chunks[0]).TitleOr(""))
	assert.Contains(t, chunks[0].Text, "Fairness.")
}
