package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// DefaultInclude matches every input format the extractors understand.
const DefaultInclude = "**/*.{pdf,json,md}"

// PipelineService runs extract, chunk, cache and index in sequence.
type PipelineService struct {
	extractors driven.ExtractorRegistry
	chunker    driven.PostProcessorPipeline
	cache      driven.ChunkCache
	indexer    driving.IndexService
	noIndexer  error
	metrics    driven.Metrics
	include    string
	inputDir   string
	exclude    []string
	params     map[string]string
}

// PipelineOption configures a PipelineService.
type PipelineOption func(*PipelineService)

// WithInclude sets the doublestar pattern of input files.
func WithInclude(pattern string) PipelineOption {
	return func(s *PipelineService) {
		if pattern != "" {
			s.include = pattern
		}
	}
}

// WithInputDir sets the directory used when a run does not name one.
func WithInputDir(dir string) PipelineOption {
	return func(s *PipelineService) {
		s.inputDir = dir
	}
}

// WithExcludeDir skips inputs below dir, typically the extraction output
// directory when it lives inside the input directory.
func WithExcludeDir(dir string) PipelineOption {
	return func(s *PipelineService) {
		if dir != "" {
			s.exclude = append(s.exclude, dir)
		}
	}
}

// WithCacheParams adds chunking parameters to the cache key.
func WithCacheParams(params map[string]string) PipelineOption {
	return func(s *PipelineService) {
		for k, v := range params {
			s.params[k] = v
		}
	}
}

// WithIndexUnavailable sets the reason reported by runs that ask for an
// index when the pipeline has no indexer.
func WithIndexUnavailable(reason error) PipelineOption {
	return func(s *PipelineService) {
		if reason != nil {
			s.noIndexer = reason
		}
	}
}

// WithPipelineMetrics records extraction and chunking metrics.
func WithPipelineMetrics(m driven.Metrics) PipelineOption {
	return func(s *PipelineService) {
		s.metrics = metricsOrNop(m)
	}
}

// NewPipelineService creates a pipeline. cache may be nil, which
// disables caching. indexer may be nil too; runs then fail after chunking
// unless they skip the index.
func NewPipelineService(
	extractors driven.ExtractorRegistry,
	chunker driven.PostProcessorPipeline,
	cache driven.ChunkCache,
	indexer driving.IndexService,
	opts ...PipelineOption,
) *PipelineService {
	s := &PipelineService{
		extractors: extractors,
		chunker:    chunker,
		cache:      cache,
		indexer:    indexer,
		noIndexer:  domain.ErrEmbeddingUnavailable,
		metrics:    nopMetrics{},
		include:    DefaultInclude,
		params:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the full pipeline.
//
// Chunks are reused from the cache when the cache key matches: the key
// covers the content of every input file and the chunking parameters, so
// any change to either forces re-extraction. With TrustCache any cached
// chunks are reused without looking at the inputs.
func (s *PipelineService) Run(ctx context.Context, opts driving.PipelineOptions) (*domain.PipelineReport, error) {
	dir := opts.InputDir
	if dir == "" {
		dir = s.inputDir
	}

	logger.Section("Pipeline")
	report := &domain.PipelineReport{}

	chunks, hit, err := s.loadOrChunk(ctx, dir, opts, report)
	if err != nil {
		return nil, err
	}
	report.CacheHit = hit
	report.Chunks = len(chunks)

	if opts.SkipIndex {
		return report, nil
	}
	if s.indexer == nil {
		return report, fmt.Errorf("no index built, %d chunks cached: %w", report.Chunks, s.noIndexer)
	}

	handle, err := s.indexer.BuildIndex(ctx, chunks)
	if err != nil {
		return report, err
	}
	report.Index = handle
	return report, nil
}

func (s *PipelineService) loadOrChunk(
	ctx context.Context,
	dir string,
	opts driving.PipelineOptions,
	report *domain.PipelineReport,
) ([]domain.Chunk, bool, error) {
	useCache := s.cache != nil && !opts.NoCache

	if useCache && opts.TrustCache {
		chunks, ok, err := s.cache.Load(ctx, "")
		if err != nil {
			return nil, false, err
		}
		if ok {
			logger.Info("pipeline: reusing %d cached chunks from %s", len(chunks), s.cache.Path())
			return chunks, true, nil
		}
	}

	files, err := s.discover(dir)
	if err != nil {
		return nil, false, err
	}

	key, err := s.cacheKey(dir, files)
	if err != nil {
		return nil, false, err
	}
	report.CacheKey = key

	if useCache {
		chunks, ok, err := s.cache.Load(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			logger.Info("pipeline: inputs unchanged, reusing %d cached chunks", len(chunks))
			return chunks, true, nil
		}
	}

	docs, failed := s.extractFiles(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	report.Documents = len(docs)
	report.Failed = failed

	chunks, err := s.Chunk(ctx, docs)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Store(ctx, key, chunks); err != nil {
			logger.Warn("pipeline: storing chunk cache: %v", err)
		}
	}
	return chunks, false, nil
}

// Extract converts every input below inputDir. Documents that fail to
// convert are logged and returned in the second result.
func (s *PipelineService) Extract(ctx context.Context, inputDir string) ([]*domain.StructuredDocument, []string, error) {
	if inputDir == "" {
		inputDir = s.inputDir
	}
	files, err := s.discover(inputDir)
	if err != nil {
		return nil, nil, err
	}
	docs, failed := s.extractFiles(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return docs, failed, nil
}

func (s *PipelineService) extractFiles(ctx context.Context, files []string) ([]*domain.StructuredDocument, []string) {
	var (
		docs   []*domain.StructuredDocument
		failed []string
	)
	for i, path := range files {
		if ctx.Err() != nil {
			break
		}
		logger.Info("extract [%d/%d] %s", i+1, len(files), filepath.Base(path))

		doc, err := s.extractOne(ctx, path)
		if err != nil {
			logger.Error(err, "extract %s", path)
			s.metrics.DocumentExtracted(false)
			failed = append(failed, path)
			continue
		}
		s.metrics.DocumentExtracted(true)
		if doc.IsEmpty() {
			logger.Warn("extract %s: no content", path)
			continue
		}
		docs = append(docs, doc)
	}
	if len(failed) > 0 {
		logger.Warn("pipeline: %d of %d documents failed to extract", len(failed), len(files))
	}
	return docs, failed
}

func (s *PipelineService) extractOne(ctx context.Context, path string) (*domain.StructuredDocument, error) {
	if s.extractors == nil {
		return nil, fmt.Errorf("%w: no extractors configured", domain.ErrExtractionFailed)
	}
	ext, err := s.extractors.For(path)
	if err != nil {
		return nil, err
	}
	return ext.Extract(ctx, path)
}

// Chunk runs every document through the chunk pipeline, preserving
// document order.
func (s *PipelineService) Chunk(ctx context.Context, docs []*domain.StructuredDocument) ([]domain.Chunk, error) {
	if s.chunker == nil {
		return nil, fmt.Errorf("%w: no chunk pipeline configured", domain.ErrInvalidState)
	}
	var all []domain.Chunk
	for _, doc := range docs {
		chunks, err := s.chunker.Process(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", doc.Name, err)
		}
		logger.Debug("chunk %s: %d chunks", doc.Name, len(chunks))
		s.metrics.ChunksProduced(len(chunks))
		all = append(all, chunks...)
	}
	logger.Info("pipeline: %d documents produced %d chunks", len(docs), len(all))
	return all, nil
}

// discover lists input files below dir in lexical order. A missing
// directory is an error; an empty one is not.
func (s *PipelineService) discover(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: no input directory", domain.ErrInvalidInput)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), s.include, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: include pattern %q: %w", domain.ErrInvalidInput, s.include, err)
	}
	sort.Strings(matches)

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		path := filepath.Join(dir, filepath.FromSlash(m))
		if s.excluded(path) {
			continue
		}
		files = append(files, path)
	}
	if len(files) == 0 {
		logger.Warn("pipeline: no inputs matching %s in %s", s.include, dir)
	}
	return files, nil
}

func (s *PipelineService) excluded(path string) bool {
	for _, dir := range s.exclude {
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// cacheKey hashes every input's relative path and content together with
// the chunking parameters.
func (s *PipelineService) cacheKey(dir string, files []string) (string, error) {
	h := sha256.New()
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		sum, err := fileDigest(path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "file %s %s\n", filepath.ToSlash(rel), sum)
	}

	if s.chunker != nil {
		fmt.Fprintf(h, "processors %s\n", strings.Join(s.chunker.Names(), ","))
	}

	keys := make([]string, 0, len(s.params))
	for k := range s.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "param %s=%s\n", k, s.params[k])
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
