package driving

import "github.com/custodia-labs/gdprqa/internal/core/domain"

// SettingsService reads and changes the persisted settings. The Set
// methods save immediately; the Validate*Config methods probe the
// configured provider over the network.
type SettingsService interface {
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error
	SetStoreBackend(backend domain.StoreBackend) error

	// Validate checks the settings without contacting any provider.
	Validate() error

	GetDefaults() domain.AppSettings

	ValidateEmbeddingConfig() error
	ValidateLLMConfig() error
}
