package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/custodia-labs/gdprqa/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/gdprqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/lexical"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/lock"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/metrics"
	storagefile "github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/tokenizer"
	"github.com/custodia-labs/gdprqa/internal/adapters/driven/watch"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/core/services"
	"github.com/custodia-labs/gdprqa/internal/extractors"
	"github.com/custodia-labs/gdprqa/internal/extractors/docling"
	"github.com/custodia-labs/gdprqa/internal/extractors/markdown"
	"github.com/custodia-labs/gdprqa/internal/extractors/pdf"
	"github.com/custodia-labs/gdprqa/internal/logger"
	"github.com/custodia-labs/gdprqa/internal/postprocessors"
)

// Index build lock timing.
const (
	lockTimeout   = 30 * time.Second
	lockRetryWait = 250 * time.Millisecond
)

// application owns the wired services and the resources behind them.
type application struct {
	services cli.Services
	closers  []func() error
}

// Close releases resources in reverse order of creation.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("shutdown: %v", err)
		}
	}
}

// build wires every adapter and service from the settings stored in
// configDir. Services whose providers are unavailable are left nil and
// the commands that need them report it.
func build(ctx context.Context, configDir string) (*application, error) {
	app := &application{}

	configStore, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	app.services.Settings = settingsService

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	prompts, err := configfile.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	prom := metrics.NewPrometheus()
	app.services.Metrics = prom.Handler()
	app.services.SearchK = settings.Retrieval.SearchK
	app.services.Assembler = services.NewContextAssembler()

	aiResult := ai.Init(settings, false)
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}
	app.closers = append(app.closers, func() error {
		aiResult.Close()
		return nil
	})

	var (
		indexer   driving.IndexService
		noIndexer error
	)
	if aiResult.EmbeddingService != nil {
		store, err := newVectorStore(ctx, settings.Store, configDir)
		if err != nil {
			// Settings, extraction and chunking still work; the commands
			// that need the store report it.
			logger.Warn("%v. Run 'gdprqa settings store' to fix", err)
			noIndexer = err
		}
		if store != nil {
			app.closers = append(app.closers, store.Close)
			indexer = wireIndex(app, settings, store, aiResult.EmbeddingService, configDir, prom)
		}
	}

	if app.services.Retrieval != nil && aiResult.LLMService != nil {
		app.services.Conversation = services.NewConversationService(
			app.services.Retrieval, app.services.Assembler, aiResult.LLMService,
			services.WithPrompts(prompts),
			services.WithConversationConfig(services.ConversationConfig{
				K:            settings.Retrieval.ChatK,
				Rerank:       settings.Retrieval.Rerank,
				RerankWeight: settings.Retrieval.RerankWeight,
				Oversample:   settings.Retrieval.Oversample,
				Temperature:  settings.Generation.ChatTemperature,
				MaxTokens:    settings.Generation.MaxTokens,
			}),
			services.WithConversationMetrics(prom))

		app.services.QA = services.NewQAService(app.services.Retrieval, aiResult.LLMService, prompts,
			services.QAConfig{
				K:            settings.Retrieval.QAK,
				RerankWeight: settings.Retrieval.RerankWeight,
				Oversample:   settings.Retrieval.Oversample,
				Temperature:  settings.Generation.QATemperature,
				MaxTokens:    settings.Generation.MaxTokens,
			})
	}

	pipeline, err := newPipeline(settings, indexer, noIndexer, prom)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.services.Pipeline = pipeline
	app.services.Watch = newWatchFunc(pipeline, settings.Pipeline.InputDir)

	return app, nil
}

// wireIndex builds the index and retrieval services over store and
// returns the indexer for the pipeline.
func wireIndex(
	app *application,
	settings *domain.AppSettings,
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	configDir string,
	prom *metrics.Prometheus,
) driving.IndexService {
	buildLock := lock.New(filepath.Join(configDir, "index.lock"),
		lock.WithTimeout(lockTimeout), lock.WithRetryWait(lockRetryWait))

	index := services.NewIndexService(store, embedder, buildLock,
		services.WithTable(settings.Pipeline.Table),
		services.WithBatchSize(settings.Pipeline.BatchSize),
		services.WithIndexMetrics(prom))
	app.services.Index = index

	app.services.Retrieval = services.NewRetrievalService(store, embedder,
		services.WithRetrievalTable(settings.Pipeline.Table),
		services.WithLexicalScorer(lexical.New()),
		services.WithRetrievalMetrics(prom))
	return index
}

// newVectorStore opens the configured vector store backend.
func newVectorStore(ctx context.Context, s domain.StoreSettings, configDir string) (driven.VectorStore, error) {
	switch s.Backend {
	case domain.StoreBackendRedis:
		store, err := redis.NewStore(ctx, redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("opening redis store: %w", err)
		}
		return store, nil
	case domain.StoreBackendMemory:
		return memory.NewVectorStore(), nil
	case domain.StoreBackendSQLite, "":
		store, err := sqlite.NewStore(filepath.Join(configDir, "data"))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("store backend %q: %w", s.Backend, domain.ErrUnsupportedType)
	}
}

// newPipeline wires extraction, chunking and the chunk cache.
func newPipeline(settings *domain.AppSettings, indexer driving.IndexService, noIndexer error, m driven.Metrics) (*services.PipelineService, error) {
	tok, err := tokenizer.New(settings.Pipeline.Tokenizer, settings.Embedding.Model)
	if err != nil {
		return nil, fmt.Errorf("creating tokenizer: %w", err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry, tok)
	chunker, err := registry.BuildPipeline(domain.PipelineConfigFor(settings.Pipeline))
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	extractorRegistry := extractors.NewRegistry(
		docling.New(),
		pdf.FromSettings(settings.Extraction, settings.Pipeline.ExtractDir),
		markdown.New(),
	)

	return services.NewPipelineService(
		extractorRegistry,
		chunker,
		storagefile.NewChunkCache(settings.Pipeline.CachePath),
		indexer,
		services.WithInputDir(settings.Pipeline.InputDir),
		services.WithInclude(settings.Pipeline.Include),
		services.WithExcludeDir(settings.Pipeline.ExtractDir),
		services.WithCacheParams(cacheParams(settings)),
		services.WithPipelineMetrics(m),
		services.WithIndexUnavailable(noIndexer),
	), nil
}

// cacheParams are the settings that change chunk output, so a change to
// any of them invalidates the chunk cache.
func cacheParams(s *domain.AppSettings) map[string]string {
	return map[string]string{
		"max_tokens":  strconv.Itoa(s.Pipeline.MaxTokens),
		"merge_peers": strconv.FormatBool(s.Pipeline.MergePeers),
		"tokenizer":   string(s.Pipeline.Tokenizer),
		"model":       s.Embedding.Model,
		"table_mode":  string(s.Extraction.TableMode),
		"ocr":         strconv.FormatBool(s.Extraction.OCR),
	}
}

// newWatchFunc runs the pipeline under a file watcher until ctx is done.
// Runs that name no input directory watch inputDir.
func newWatchFunc(pipeline driving.PipelineService, inputDir string) cli.WatchFunc {
	return func(ctx context.Context, opts driving.PipelineOptions, onRun func(*domain.PipelineReport, error)) error {
		if opts.InputDir == "" {
			opts.InputDir = inputDir
		}
		w := services.NewWatcher(pipeline, watch.New(), opts, services.WithRunCallback(onRun))
		return w.Start(ctx)
	}
}
