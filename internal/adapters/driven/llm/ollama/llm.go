// Package ollama generates answers with a local Ollama chat model.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/custodia-labs/gdprqa/internal/adapters/driven/llm/stream"
	api "github.com/custodia-labs/gdprqa/internal/adapters/driven/ollama"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = api.DefaultBaseURL
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds the Ollama connection and model. Zero fields take the
// defaults above.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService streams /api/chat, which answers with one JSON object per
// line.
type LLMService struct {
	client *api.Client
	model  string
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  options   `json:"options"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatLine struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		client: api.NewClient(cfg.BaseURL, cfg.Timeout),
		model:  cfg.Model,
	}
}

func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return stream.Collect(s.ChatStream(ctx, messages, opts))
}

func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := chatRequest{
			Model:    s.model,
			Messages: make([]message, len(messages)),
			Stream:   true,
			Options:  options{NumPredict: opts.MaxTokens, Temperature: opts.Temperature},
		}
		for i, m := range messages {
			req.Messages[i] = message{Role: m.Role, Content: m.Content}
		}

		resp, err := s.client.Post(ctx, "/api/chat", req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		for line, err := range stream.Lines(resp.Body) {
			if err != nil {
				yield("", fmt.Errorf("ollama: read stream: %w", err))
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}

			var chunk chatLine
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				yield("", fmt.Errorf("ollama: decode stream line: %w", err))
				return
			}
			if chunk.Error != "" {
				yield("", fmt.Errorf("ollama error: %s", chunk.Error))
				return
			}
			if chunk.Message.Content != "" && !yield(chunk.Message.Content, nil) {
				return
			}
			if chunk.Done {
				return
			}
		}
	}
}

func (s *LLMService) ModelName() string { return s.model }

func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *LLMService) Close() error { return nil }
