package tokenizer

import (
	"fmt"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// New creates the tokenizer selected by kind for the embedding model.
// When tiktoken data cannot be loaded the estimate tokenizer is used
// and a warning is logged.
func New(kind domain.TokenizerKind, model string) (driven.Tokenizer, error) {
	switch kind {
	case domain.TokenizerEstimate:
		return Estimate{}, nil
	case domain.TokenizerTiktoken, "":
		t, err := NewTiktoken(model)
		if err != nil {
			logger.Warn("tokenizer: %v; falling back to estimate", err)
			return Estimate{}, nil
		}
		return t, nil
	default:
		return nil, fmt.Errorf("tokenizer %q: %w", kind, domain.ErrUnsupportedType)
	}
}
