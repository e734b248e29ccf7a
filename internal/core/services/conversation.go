package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Ensure ConversationService implements the interface.
var _ driving.ConversationService = (*ConversationService)(nil)

// ConversationConfig holds per-turn retrieval and generation parameters.
type ConversationConfig struct {
	K            int
	Rerank       bool
	RerankWeight float64
	Oversample   int
	Temperature  float64
	MaxTokens    int
}

// DefaultConversationConfig returns the chat defaults.
func DefaultConversationConfig() ConversationConfig {
	return ConversationConfig{
		K:            10,
		RerankWeight: domain.DefaultRerankWeight,
		Oversample:   DefaultOversample,
		Temperature:  0.7,
	}
}

// ConversationService runs grounded chat turns.
//
// A session moves Idle -> AwaitingContext -> AwaitingAnswer -> Idle on every
// turn. Only one turn may be in flight; a second Submit is rejected with
// domain.ErrSessionBusy.
type ConversationService struct {
	retriever driving.RetrievalService
	assembler driving.ContextAssembler
	llm       driven.LLMService
	prompts   driven.PromptStore
	metrics   driven.Metrics
	cfg       ConversationConfig

	mu       sync.Mutex
	state    domain.SessionState
	messages []domain.Message
}

// ConversationOption configures a ConversationService.
type ConversationOption func(*ConversationService)

// WithPrompts loads the system prompt from a PromptStore.
func WithPrompts(p driven.PromptStore) ConversationOption {
	return func(s *ConversationService) {
		s.prompts = p
	}
}

// WithConversationConfig overrides the chat defaults.
func WithConversationConfig(cfg ConversationConfig) ConversationOption {
	return func(s *ConversationService) {
		if cfg.K > 0 {
			s.cfg = cfg
		}
	}
}

// WithConversationMetrics records turn outcomes.
func WithConversationMetrics(m driven.Metrics) ConversationOption {
	return func(s *ConversationService) {
		s.metrics = metricsOrNop(m)
	}
}

// NewConversationService creates an idle session. llm may be nil; turns then
// end with the apology message.
func NewConversationService(
	retriever driving.RetrievalService,
	assembler driving.ContextAssembler,
	llm driven.LLMService,
	opts ...ConversationOption,
) *ConversationService {
	s := &ConversationService{
		retriever: retriever,
		assembler: assembler,
		llm:       llm,
		metrics:   nopMetrics{},
		cfg:       DefaultConversationConfig(),
		state:     domain.SessionIdle,
	}
	if s.assembler == nil {
		s.assembler = NewContextAssembler()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs one turn. Answer fragments are passed to onFragment as they
// stream in. A generation failure is not returned as an error: the turn
// completes with the apology as the assistant message and TurnResult.Err
// set. Errors are returned only when the turn is rejected.
func (s *ConversationService) Submit(
	ctx context.Context,
	input string,
	onFragment func(string),
) (*domain.TurnResult, error) {
	if strings.TrimSpace(input) == "" {
		return nil, fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	if s.state != domain.SessionIdle {
		state := s.state
		s.mu.Unlock()
		s.metrics.TurnCompleted(driven.TurnRejected)
		return nil, fmt.Errorf("%w: session is %s", domain.ErrSessionBusy, state)
	}
	s.messages = append(s.messages, domain.Message{Role: domain.RoleUser, Content: input})
	s.state = domain.SessionAwaitingContext
	s.mu.Unlock()

	result := &domain.TurnResult{}
	result.Results, result.Context = s.retrieve(ctx, input)

	s.mu.Lock()
	s.state = domain.SessionAwaitingAnswer
	history := s.chatMessages(result.Context)
	s.mu.Unlock()

	answer, err := s.generate(ctx, history, onFragment)
	if err != nil {
		logger.Error(err, "chat: generation failed")
		answer = domain.ApologyMessage
		result.Err = err
		s.metrics.TurnCompleted(driven.TurnGenerationErr)
	} else {
		s.metrics.TurnCompleted(driven.TurnAnswered)
	}
	result.Answer = domain.Message{Role: domain.RoleAssistant, Content: answer}

	s.mu.Lock()
	s.messages = append(s.messages, result.Answer)
	s.state = domain.SessionIdle
	s.mu.Unlock()

	return result, nil
}

// retrieve fetches and assembles context. Any failure yields an empty
// context so the turn can still be answered.
func (s *ConversationService) retrieve(ctx context.Context, query string) ([]domain.SearchResult, string) {
	if s.retriever == nil {
		logger.Warn("chat: no retriever configured, answering without context")
		return nil, ""
	}
	results, err := s.retriever.Search(ctx, query, domain.SearchOptions{
		K:            s.cfg.K,
		Rerank:       s.cfg.Rerank,
		RerankWeight: s.cfg.RerankWeight,
		Oversample:   s.cfg.Oversample,
	})
	if err != nil {
		logger.Warn("chat: retrieval failed, answering without context: %v", err)
		return nil, ""
	}
	return results, s.assembler.Assemble(results)
}

// chatMessages builds the system instruction followed by the full history.
// Callers hold s.mu.
func (s *ConversationService) chatMessages(context string) []driven.ChatMessage {
	msgs := make([]driven.ChatMessage, 0, len(s.messages)+1)
	msgs = append(msgs, driven.ChatMessage{
		Role:    string(domain.RoleSystem),
		Content: domain.RenderPrompt(s.systemTemplate(), context, ""),
	})
	for _, m := range s.messages {
		msgs = append(msgs, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

func (s *ConversationService) systemTemplate() string {
	if s.prompts == nil {
		return domain.DefaultChatSystemPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptChatSystem)
	if err != nil {
		logger.Warn("chat: load system prompt: %v", err)
		return domain.DefaultChatSystemPrompt
	}
	return tmpl
}

// generate drains the answer stream, forwarding each fragment.
func (s *ConversationService) generate(
	ctx context.Context,
	history []driven.ChatMessage,
	onFragment func(string),
) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	var answer strings.Builder
	opts := driven.ChatOptions{MaxTokens: s.cfg.MaxTokens, Temperature: s.cfg.Temperature}
	for fragment, err := range s.llm.ChatStream(ctx, history, opts) {
		if err != nil {
			return answer.String(), err
		}
		answer.WriteString(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}
	}
	return answer.String(), nil
}

// Messages returns a copy of the conversation history.
func (s *ConversationService) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the current session state.
func (s *ConversationService) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Clear empties the history. It is only valid between turns.
func (s *ConversationService) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.SessionIdle {
		return fmt.Errorf("%w: cannot clear while %s", domain.ErrInvalidState, s.state)
	}
	s.messages = nil
	return nil
}
