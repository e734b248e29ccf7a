package services

import (
	"fmt"
	"os"
	"slices"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"

	keyInputDir   = "pipeline.input_dir"
	keyExtractDir = "pipeline.extract_dir"
	keyInclude    = "pipeline.include"
	keyCachePath  = "pipeline.cache_path"
	keyTable      = "pipeline.table"
	keyBatchSize  = "pipeline.batch_size"
	keyMaxTokens  = "pipeline.max_tokens"
	keyMergePeers = "pipeline.merge_peers"
	keyTokenizer  = "pipeline.tokenizer"

	keyTableMode = "extraction.table_mode"
	keyOCR       = "extraction.ocr"

	keyChatK        = "retrieval.chat_k"
	keyQAK          = "retrieval.qa_k"
	keySearchK      = "retrieval.search_k"
	keyRerank       = "retrieval.rerank"
	keyRerankWeight = "retrieval.rerank_weight"
	keyOversample   = "retrieval.rerank_oversample"

	keyChatTemperature = "generation.chat_temperature"
	keyQATemperature   = "generation.qa_temperature"
	keyGenMaxTokens    = "generation.max_tokens"

	keyStoreBackend  = "store.backend"
	keyRedisAddr     = "store.redis_addr"
	keyRedisPassword = "store.redis_password"
	keyRedisDB       = "store.redis_db"
)

// API key environment variables, read when no key is stored.
//
//nolint:gosec // G101: variable names, not credentials.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings. Missing or invalid values
// fall back to defaults; missing API keys are read from the environment.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Pipeline: domain.PipelineSettings{
			InputDir:   s.getString(keyInputDir, d.Pipeline.InputDir),
			ExtractDir: s.getString(keyExtractDir, d.Pipeline.ExtractDir),
			Include:    s.getString(keyInclude, d.Pipeline.Include),
			CachePath:  s.getString(keyCachePath, d.Pipeline.CachePath),
			Table:      s.getString(keyTable, d.Pipeline.Table),
			BatchSize:  s.getInt(keyBatchSize, d.Pipeline.BatchSize),
			MaxTokens:  s.getInt(keyMaxTokens, d.Pipeline.MaxTokens),
			MergePeers: s.getBool(keyMergePeers, d.Pipeline.MergePeers),
			Tokenizer:  getEnum(s, keyTokenizer, d.Pipeline.Tokenizer, domain.TokenizerKind.IsValid),
		},
		Extraction: domain.ExtractionSettings{
			TableMode: getEnum(s, keyTableMode, d.Extraction.TableMode, domain.TableMode.IsValid),
			OCR:       s.getBool(keyOCR, d.Extraction.OCR),
		},
		Retrieval: domain.RetrievalSettings{
			ChatK:        s.getInt(keyChatK, d.Retrieval.ChatK),
			QAK:          s.getInt(keyQAK, d.Retrieval.QAK),
			SearchK:      s.getInt(keySearchK, d.Retrieval.SearchK),
			Rerank:       s.getBool(keyRerank, d.Retrieval.Rerank),
			RerankWeight: s.getFloat(keyRerankWeight, d.Retrieval.RerankWeight),
			Oversample:   s.getInt(keyOversample, d.Retrieval.Oversample),
		},
		Generation: domain.GenerationSettings{
			ChatTemperature: s.getFloat(keyChatTemperature, d.Generation.ChatTemperature),
			QATemperature:   s.getFloat(keyQATemperature, d.Generation.QATemperature),
			MaxTokens:       s.getInt(keyGenMaxTokens, d.Generation.MaxTokens),
		},
		Store: domain.StoreSettings{
			Backend:       getEnum(s, keyStoreBackend, d.Store.Backend, domain.StoreBackend.IsValid),
			RedisAddr:     s.getString(keyRedisAddr, d.Store.RedisAddr),
			RedisPassword: s.configStore.GetString(keyRedisPassword),
			RedisDB:       s.configStore.GetInt(keyRedisDB),
		},
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envAPIKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envAPIKey(settings.LLM.Provider)
	}

	return settings, nil
}

// Save persists application settings. API keys that are empty or were
// taken from the environment are not written to the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []setting{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},

		{keyInputDir, settings.Pipeline.InputDir},
		{keyExtractDir, settings.Pipeline.ExtractDir},
		{keyInclude, settings.Pipeline.Include},
		{keyCachePath, settings.Pipeline.CachePath},
		{keyTable, settings.Pipeline.Table},
		{keyBatchSize, settings.Pipeline.BatchSize},
		{keyMaxTokens, settings.Pipeline.MaxTokens},
		{keyMergePeers, settings.Pipeline.MergePeers},
		{keyTokenizer, string(settings.Pipeline.Tokenizer)},

		{keyTableMode, string(settings.Extraction.TableMode)},
		{keyOCR, settings.Extraction.OCR},

		{keyChatK, settings.Retrieval.ChatK},
		{keyQAK, settings.Retrieval.QAK},
		{keySearchK, settings.Retrieval.SearchK},
		{keyRerank, settings.Retrieval.Rerank},
		{keyRerankWeight, settings.Retrieval.RerankWeight},
		{keyOversample, settings.Retrieval.Oversample},

		{keyChatTemperature, settings.Generation.ChatTemperature},
		{keyQATemperature, settings.Generation.QATemperature},
		{keyGenMaxTokens, settings.Generation.MaxTokens},

		{keyStoreBackend, string(settings.Store.Backend)},
		{keyRedisAddr, settings.Store.RedisAddr},
		{keyRedisDB, settings.Store.RedisDB},
	}
	if settings.Embedding.APIKey != "" && !s.fromEnv(settings.Embedding.Provider, settings.Embedding.APIKey) {
		values = append(values, setting{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" && !s.fromEnv(settings.LLM.Provider, settings.LLM.APIKey) {
		values = append(values, setting{keyLLMAPIKey, settings.LLM.APIKey})
	}
	if settings.Store.RedisPassword != "" {
		values = append(values, setting{keyRedisPassword, settings.Store.RedisPassword})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// setting is one config key and its value.
type setting struct {
	key   string
	value any
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %s", domain.ErrInvalidInput, provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: LLM provider %s", domain.ErrInvalidInput, provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetStoreBackend selects the vector store backend.
func (s *SettingsService) SetStoreBackend(backend domain.StoreBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: store backend %s", domain.ErrInvalidInput, backend)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Store.Backend = backend
	return s.Save(settings)
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	p, r := settings.Pipeline, settings.Retrieval
	switch {
	case p.BatchSize <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyBatchSize)
	case p.MaxTokens <= 0:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyMaxTokens)
	case p.Table == "":
		return fmt.Errorf("%w: %s must be set", domain.ErrInvalidInput, keyTable)
	case r.ChatK <= 0 || r.QAK <= 0 || r.SearchK <= 0:
		return fmt.Errorf("%w: retrieval k values must be positive", domain.ErrInvalidInput)
	case r.RerankWeight < 0 || r.RerankWeight > 1:
		return fmt.Errorf("%w: %s must be within [0, 1]", domain.ErrInvalidInput, keyRerankWeight)
	case r.Oversample < 1:
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyOversample)
	case !settings.Embedding.IsConfigured():
		return fmt.Errorf("%w: embedding provider %q is not configured", domain.ErrEmbeddingUnavailable,
			settings.Embedding.Provider)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	name, ok := apiKeyEnv[provider]
	if !ok || s.lookupEnv == nil {
		return ""
	}
	val, _ := s.lookupEnv(name)
	return val
}

// fromEnv reports whether key is the provider's environment key.
func (s *SettingsService) fromEnv(provider domain.AIProvider, key string) bool {
	return key == s.envAPIKey(provider)
}

func modelOrDefault(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// baseURLFor keeps a local provider's URL and clears it for cloud ones.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return "http://localhost:11434"
	}
	return current
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getFloat distinguishes a stored 0 from a missing key; a temperature of
// 0 is meaningful.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	return getEnum(s, key, defaultVal, domain.AIProvider.IsValid)
}

// getEnum reads a string-typed enum, falling back when missing or invalid.
func getEnum[T ~string](s *SettingsService, key string, defaultVal T, valid func(T) bool) T {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	if v := T(val); valid(v) {
		return v
	}
	return defaultVal
}
