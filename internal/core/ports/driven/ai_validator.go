package driven

import "github.com/custodia-labs/gdprqa/internal/core/domain"

// AIConfigValidator probes a provider configuration before it is relied
// on. An unconfigured provider is not an error; settings that name a
// provider that cannot be reached are.
type AIConfigValidator interface {
	ValidateEmbedding(config *domain.EmbeddingSettings) error
	ValidateLLM(config *domain.LLMSettings) error
}
