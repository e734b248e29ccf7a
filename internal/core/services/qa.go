package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Ensure QAService implements the interface.
var _ driving.QAService = (*QAService)(nil)

// QAConfig holds the single-shot answering parameters.
type QAConfig struct {
	K            int
	RerankWeight float64
	Oversample   int
	Temperature  float64
	MaxTokens    int
}

// DefaultQAConfig returns the stricter batch defaults: reranked top 3 at
// temperature 0.
func DefaultQAConfig() QAConfig {
	return QAConfig{
		K:            3,
		RerankWeight: domain.DefaultRerankWeight,
		Oversample:   DefaultOversample,
	}
}

// QAService answers standalone questions without conversation history.
type QAService struct {
	retriever driving.RetrievalService
	assembler driving.ContextAssembler
	llm       driven.LLMService
	prompts   driven.PromptStore
	cfg       QAConfig
}

// NewQAService creates a QA service. prompts may be nil.
func NewQAService(
	retriever driving.RetrievalService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg QAConfig,
) *QAService {
	if cfg.K <= 0 {
		cfg.K = DefaultQAConfig().K
	}
	return &QAService{
		retriever: retriever,
		assembler: NewContextAssembler(),
		llm:       llm,
		prompts:   prompts,
		cfg:       cfg,
	}
}

// Ask retrieves context for question and generates a grounded answer.
// Unlike a chat turn, retrieval and generation errors are returned.
func (s *QAService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if s.retriever == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	results, err := s.retriever.Search(ctx, question, domain.SearchOptions{
		K:            s.cfg.K,
		Rerank:       true,
		RerankWeight: s.cfg.RerankWeight,
		Oversample:   s.cfg.Oversample,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	prompt := domain.RenderPrompt(s.template(), s.assembler.Assemble(results), question)
	text, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: string(domain.RoleUser), Content: prompt},
	}, driven.ChatOptions{MaxTokens: s.cfg.MaxTokens, Temperature: s.cfg.Temperature})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	logger.Debug("qa: answered %q from %d sources", domain.Clip(question, 60), len(results))
	return &domain.Answer{
		Question: question,
		Text:     strings.TrimSpace(text),
		Sources:  results,
	}, nil
}

func (s *QAService) template() string {
	if s.prompts == nil {
		return domain.DefaultQAPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptQA)
	if err != nil {
		logger.Warn("qa: load prompt: %v", err)
		return domain.DefaultQAPrompt
	}
	return tmpl
}
