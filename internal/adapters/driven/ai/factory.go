// Package ai builds the embedding and LLM adapters named by the settings.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/gdprqa/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/gdprqa/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/gdprqa/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/gdprqa/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/gdprqa/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// pingTimeout bounds the probe of a freshly built service.
const pingTimeout = 5 * time.Second

// fixHint is appended to provider errors.
const fixHint = "Run 'gdprqa settings' to fix"

var embedders = map[domain.AIProvider]func(*domain.ProviderSettings) (driven.EmbeddingService, error){
	domain.AIProviderOllama: func(s *domain.ProviderSettings) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.ProviderSettings) (driven.EmbeddingService, error) {
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: domain.EmbeddingDimensions()[s.Model],
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

var generators = map[domain.AIProvider]func(*domain.ProviderSettings) (driven.LLMService, error){
	domain.AIProviderOllama: func(s *domain.ProviderSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.ProviderSettings) (driven.LLMService, error) {
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
	domain.AIProviderAnthropic: func(s *domain.ProviderSettings) (driven.LLMService, error) {
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

// InitResult holds the services Init could build. Warnings explain each
// one left nil.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string
}

func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init creates both services from settings. With validate set, each
// service is pinged and dropped with a warning when unreachable. Without
// embeddings nothing can be indexed or retrieved; without an LLM only
// search is available.
func Init(settings *domain.AppSettings, validate bool) *InitResult {
	result := &InitResult{}
	if settings == nil {
		result.Warnings = append(result.Warnings, "no settings loaded")
		return result
	}

	createEmbed, createLLM := CreateEmbeddingService, CreateLLMService
	if validate {
		createEmbed, createLLM = CreateAndValidateEmbeddingService, CreateAndValidateLLMService
	}

	embed, err := createEmbed(&settings.Embedding)
	result.EmbeddingService = embed
	if w := warning(embed == nil, err, domain.ErrEmbeddingUnavailable); w != "" {
		result.Warnings = append(result.Warnings, w)
	}

	llm, err := createLLM(&settings.LLM)
	result.LLMService = llm
	if w := warning(llm == nil, err, domain.ErrLLMUnavailable); w != "" {
		result.Warnings = append(result.Warnings, w)
	}
	return result
}

// warning explains a service Init could not build, or returns "".
func warning(missing bool, err, unavailable error) string {
	switch {
	case err != nil:
		return err.Error()
	case missing:
		return fmt.Sprintf("%s: provider not configured. %s", unavailable, fixHint)
	}
	return ""
}

// CreateAndValidateEmbeddingService creates the embedding service and
// pings it. A nil service with a nil error means no provider is set.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	return validate(svc, err, domain.ErrEmbeddingUnavailable)
}

// CreateAndValidateLLMService creates the LLM service and pings it. A nil
// service with a nil error means no provider is set.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	return validate(svc, err, domain.ErrLLMUnavailable)
}

type pingCloser interface {
	Ping(ctx context.Context) error
	Close() error
}

// validate pings a freshly created service under pingTimeout and closes
// it when unreachable. Failures are wrapped in unavailable.
func validate[S pingCloser](svc S, err error, unavailable error) (S, error) {
	var zero S
	if err != nil {
		return zero, fmt.Errorf("%w: %w. %s", unavailable, err, fixHint)
	}
	if any(svc) == nil {
		return zero, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return zero, fmt.Errorf("%w: service unreachable (%w). %s", unavailable, err, fixHint)
	}
	return svc, nil
}

// CreateEmbeddingService builds the embedding adapter of the configured
// provider, or returns nil when none is configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := embedders[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s does not support embeddings, use ollama or openai", domain.ErrUnsupportedType, settings.Provider)
	}
	return build(settings)
}

// CreateLLMService builds the chat adapter of the configured provider, or
// returns nil when none is configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	build, ok := generators[settings.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	return build(settings)
}
