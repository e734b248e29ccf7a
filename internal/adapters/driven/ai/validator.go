package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// probeText is embedded once to check the vector width a model returns.
const probeText = "Article 5 GDPR: principles relating to processing of personal data"

// ConfigValidator checks provider settings before they are saved. An
// embedding model is also asked for one vector, because a width that
// differs from the one the store is created with breaks every query.
type ConfigValidator struct {
	timeout  time.Duration
	newEmbed func(*domain.EmbeddingSettings) (driven.EmbeddingService, error)
	newLLM   func(*domain.LLMSettings) (driven.LLMService, error)
}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		timeout:  pingTimeout,
		newEmbed: CreateEmbeddingService,
		newLLM:   CreateLLMService,
	}
}

// ValidateEmbedding returns nil when no provider is configured.
func (v *ConfigValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	svc, err := v.newEmbed(cfg)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return err
	}
	vec, err := svc.Embed(ctx, probeText)
	if err != nil {
		return fmt.Errorf("embedding probe: %w", err)
	}
	if want := svc.Dimensions(); want > 0 && len(vec) != want {
		return fmt.Errorf("%w: model %s returns %d dimensions, expected %d",
			domain.ErrInvalidInput, svc.ModelName(), len(vec), want)
	}
	return nil
}

// ValidateLLM returns nil when no provider is configured.
func (v *ConfigValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	svc, err := v.newLLM(cfg)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return svc.Ping(ctx)
}
