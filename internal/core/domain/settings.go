package domain

const unknownDescription = "Unknown"

// AIProvider names a service that embeds text, writes answers, or both.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
)

// providerInfo describes a provider. An empty default model means the
// provider does not offer that capability.
type providerInfo struct {
	description string
	hosted      bool
	embedModel  string
	llmModel    string
}

// providerOrder is the order providers are offered in.
var providerOrder = []AIProvider{AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic}

var providerInfos = map[AIProvider]providerInfo{
	AIProviderOllama: {
		description: "Ollama (local)",
		embedModel:  "nomic-embed-text",
		llmModel:    "llama3.2",
	},
	AIProviderOpenAI: {
		description: "OpenAI (cloud)",
		hosted:      true,
		embedModel:  "text-embedding-3-large",
		llmModel:    "gpt-4o",
	},
	AIProviderAnthropic: {
		description: "Anthropic (cloud)",
		hosted:      true,
		llmModel:    "claude-3-5-sonnet-latest",
	},
}

func (p AIProvider) IsValid() bool {
	_, ok := providerInfos[p]
	return ok
}

// RequiresAPIKey reports whether the provider is a hosted API.
func (p AIProvider) RequiresAPIKey() bool { return providerInfos[p].hosted }

// IsLocal reports whether the provider runs on a local server reached
// through BaseURL.
func (p AIProvider) IsLocal() bool { return p.IsValid() && !providerInfos[p].hosted }

func (p AIProvider) String() string { return string(p) }

func (p AIProvider) Description() string {
	if info, ok := providerInfos[p]; ok {
		return info.description
	}
	return unknownDescription
}

// ProviderSettings selects a provider and model. BaseURL only applies to
// local providers and APIKey only to hosted ones.
type ProviderSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured reports whether the settings name a known provider and
// carry a key when the provider needs one. Reachability is not checked.
func (s ProviderSettings) IsConfigured() bool {
	return s.Provider.IsValid() && (!s.Provider.RequiresAPIKey() || s.APIKey != "")
}

type (
	EmbeddingSettings = ProviderSettings
	LLMSettings       = ProviderSettings
)

// TableMode selects the extractor's table-structure recognition mode.
type TableMode string

// Table structure modes.
const (
	TableModeFast     TableMode = "fast"
	TableModeAccurate TableMode = "accurate"
)

// IsValid returns true if the table mode is recognised.
func (m TableMode) IsValid() bool {
	return m == TableModeFast || m == TableModeAccurate
}

// ExtractionSettings are passed through to the document converter.
type ExtractionSettings struct {
	// TableMode is the table-structure recognition mode.
	TableMode TableMode

	// OCR enables optical character recognition.
	OCR bool
}

// StoreBackend identifies a vector store implementation.
type StoreBackend string

// Vector store backends.
const (
	StoreBackendSQLite StoreBackend = "sqlite"
	StoreBackendRedis  StoreBackend = "redis"
	StoreBackendMemory StoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendSQLite, StoreBackendRedis, StoreBackendMemory:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreBackendSQLite:
		return "SQLite (local file)"
	case StoreBackendRedis:
		return "Redis Stack (RediSearch)"
	case StoreBackendMemory:
		return "In-memory (not persisted)"
	default:
		return unknownDescription
	}
}

// StoreSettings configures the vector store.
type StoreSettings struct {
	Backend StoreBackend

	// RedisAddr is host:port of the Redis server.
	RedisAddr string

	// RedisPassword is optional.
	RedisPassword string

	// RedisDB selects the Redis logical database.
	RedisDB int
}

// TokenizerKind identifies a tokenizer implementation.
type TokenizerKind string

// Tokenizers.
const (
	TokenizerTiktoken TokenizerKind = "tiktoken"
	TokenizerEstimate TokenizerKind = "estimate"
)

// IsValid returns true if the tokenizer kind is recognised.
func (k TokenizerKind) IsValid() bool {
	return k == TokenizerTiktoken || k == TokenizerEstimate
}

// PipelineSettings configures extraction, chunking and indexing.
type PipelineSettings struct {
	// InputDir holds the source PDFs and pre-extracted JSON files.
	InputDir string

	// ExtractDir receives extracted JSON documents.
	ExtractDir string

	// Include is the doublestar pattern of input files, relative to InputDir.
	Include string

	// CachePath is the chunk cache artifact.
	CachePath string

	// Table is the vector table name.
	Table string

	// BatchSize is the number of chunks embedded and written per batch.
	BatchSize int

	// MaxTokens is the chunk token budget.
	MaxTokens int

	// MergePeers enables peer merging of adjacent chunks.
	MergePeers bool

	// Tokenizer selects the token counter.
	Tokenizer TokenizerKind
}

// RetrievalSettings configures the retriever for each caller.
type RetrievalSettings struct {
	// ChatK is the number of chunks retrieved per conversation turn.
	ChatK int

	// QAK is the number of chunks retrieved for batch QA.
	QAK int

	// SearchK is the default for the search command.
	SearchK int

	// Rerank enables the lexical reranking pass for chat and search.
	Rerank bool

	// RerankWeight is the vector score weight of the reranker.
	RerankWeight float64

	// Oversample sizes the reranking candidate set as K * Oversample.
	Oversample int
}

// GenerationSettings configures answer generation.
type GenerationSettings struct {
	// ChatTemperature is used for conversational answers.
	ChatTemperature float64

	// QATemperature is used for the stricter batch QA variant.
	QATemperature float64

	// MaxTokens caps the answer length. Zero leaves it to the provider.
	MaxTokens int
}

// AppSettings is everything persisted in the config file.
type AppSettings struct {
	Embedding  EmbeddingSettings
	LLM        LLMSettings
	Pipeline   PipelineSettings
	Extraction ExtractionSettings
	Retrieval  RetrievalSettings
	Generation GenerationSettings
	Store      StoreSettings
}

// DefaultAppSettings is the configuration of a fresh install. API keys are left empty and are read from the environment when unset.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOpenAI,
			Model:    "text-embedding-3-large",
		},
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    "gpt-4o",
		},
		Pipeline: PipelineSettings{
			InputDir:   "data/pdf",
			ExtractDir: "data/extracted",
			Include:    "**/*.{pdf,json,md}",
			CachePath:  "data/chunks.cache",
			Table:      "docling",
			BatchSize:  100,
			MaxTokens:  MaxTokens,
			MergePeers: true,
			Tokenizer:  TokenizerTiktoken,
		},
		Extraction: ExtractionSettings{
			TableMode: TableModeFast,
			OCR:       false,
		},
		Retrieval: RetrievalSettings{
			ChatK:        10,
			QAK:          3,
			SearchK:      5,
			Rerank:       false,
			RerankWeight: DefaultRerankWeight,
			Oversample:   3,
		},
		Generation: GenerationSettings{
			ChatTemperature: 0.7,
			QATemperature:   0,
		},
		Store: StoreSettings{
			Backend:   StoreBackendSQLite,
			RedisAddr: "localhost:6379",
		},
	}
}

// AllEmbeddingProviders lists the providers that can embed text.
func AllEmbeddingProviders() []AIProvider {
	return providersWith(func(i providerInfo) string { return i.embedModel })
}

// AllLLMProviders lists the providers that can write answers.
func AllLLMProviders() []AIProvider {
	return providersWith(func(i providerInfo) string { return i.llmModel })
}

func providersWith(model func(providerInfo) string) []AIProvider {
	var out []AIProvider
	for _, p := range providerOrder {
		if model(providerInfos[p]) != "" {
			out = append(out, p)
		}
	}
	return out
}

// AllStoreBackends returns the selectable vector store backends.
func AllStoreBackends() []StoreBackend {
	return []StoreBackend{
		StoreBackendSQLite,
		StoreBackendRedis,
		StoreBackendMemory,
	}
}

// DefaultEmbeddingModels maps each embedding provider to the model used
// when none is given.
func DefaultEmbeddingModels() map[AIProvider]string {
	return defaultModels(AllEmbeddingProviders(), func(i providerInfo) string { return i.embedModel })
}

// DefaultLLMModels maps each LLM provider to the model used when none is
// given.
func DefaultLLMModels() map[AIProvider]string {
	return defaultModels(AllLLMProviders(), func(i providerInfo) string { return i.llmModel })
}

func defaultModels(providers []AIProvider, model func(providerInfo) string) map[AIProvider]string {
	m := make(map[AIProvider]string, len(providers))
	for _, p := range providers {
		m[p] = model(providerInfos[p])
	}
	return m
}

// EmbeddingDimensions gives the native vector width of the embedding
// models gdprqa knows about.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig names the post-processing stages, in order, and the
// options of each keyed by stage name. Options stay untyped so a stage
// can be added without touching this struct.
type PipelineConfig struct {
	Processors       []string
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns the options of a stage, nil when it has none.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default chunk pipeline: hybrid chunking
// with peer merge, then removal of whitespace-only chunks.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"hybrid_chunker", "drop_empty"},
		ProcessorConfigs: map[string]map[string]any{
			"hybrid_chunker": {
				"max_tokens":  MaxTokens,
				"merge_peers": true,
			},
		},
	}
}

// PipelineConfigFor returns the default pipeline configured from settings.
func PipelineConfigFor(s PipelineSettings) PipelineConfig {
	cfg := DefaultPipelineConfig()
	if s.MaxTokens > 0 {
		cfg.ProcessorConfigs["hybrid_chunker"]["max_tokens"] = s.MaxTokens
	}
	cfg.ProcessorConfigs["hybrid_chunker"]["merge_peers"] = s.MergePeers
	return cfg
}
