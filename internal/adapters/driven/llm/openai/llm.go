// Package openai generates answers with the OpenAI chat completions
// endpoint, always streaming.
package openai

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/custodia-labs/gdprqa/internal/adapters/driven/llm/stream"
	api "github.com/custodia-labs/gdprqa/internal/adapters/driven/openai"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = api.DefaultBaseURL
	DefaultLLMModel   = "gpt-4o"
	DefaultLLMTimeout = 120 * time.Second
)

// doneMarker is the data of the last event of a completion stream.
const doneMarker = "[DONE]"

// LLMConfig configures the chat service. Only APIKey is required; the
// timeout bounds a whole request, streaming included.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService answers with an OpenAI chat model.
type LLMService struct {
	client *api.Client
	model  string
}

// completionRequest omits max_tokens when unset but always sends the
// temperature, since 0 is the QA setting.
type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *api.ErrorBody `json:"error,omitempty"`
}

// NewLLMService creates the service, filling in defaults.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	client, err := api.NewClient(cfg.APIKey, cfg.BaseURL, cmp.Or(cfg.Timeout, DefaultLLMTimeout))
	if err != nil {
		return nil, err
	}
	return &LLMService{client: client, model: cmp.Or(cfg.Model, DefaultLLMModel)}, nil
}

// Chat returns the whole reply.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return stream.Collect(s.ChatStream(ctx, messages, opts))
}

// ChatStream yields the content deltas of a streamed completion. An
// error event from the server ends the sequence with that error.
func (s *LLMService) ChatStream(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := completionRequest{
			Model:       s.model,
			Messages:    make([]chatMessage, len(messages)),
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
			Stream:      true,
		}
		for i, m := range messages {
			req.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
		}

		resp, err := s.client.Post(ctx, "/chat/completions", "text/event-stream", req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		for ev, err := range stream.Events(resp.Body) {
			if err != nil {
				yield("", fmt.Errorf("openai: read stream: %w", err))
				return
			}
			if ev.Data == doneMarker {
				return
			}

			var chunk completionChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				yield("", fmt.Errorf("openai: decode stream event: %w", err))
				return
			}
			if chunk.Error != nil {
				yield("", fmt.Errorf("openai error: %s", chunk.Error.Message))
				return
			}
			for _, c := range chunk.Choices {
				if c.Delta.Content != "" && !yield(c.Delta.Content, nil) {
					return
				}
			}
		}
	}
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the key against the models endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *LLMService) Close() error {
	return nil
}
