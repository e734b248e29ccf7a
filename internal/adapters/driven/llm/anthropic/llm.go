// Package anthropic generates answers with the Anthropic Messages API,
// always streaming.
package anthropic

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/gdprqa/internal/adapters/driven/llm/stream"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTokens is sent when the caller sets no limit; the API
	// rejects requests without one.
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
	maxErrorBody     = 4 << 10
)

// Config configures the chat service. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// APIError is a non-200 response or an error event inside a stream.
type APIError struct {
	Status  int // 0 for stream events
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("anthropic error: %s", e.Message)
	}
	return fmt.Sprintf("anthropic error (status %d): %s", e.Status, e.Message)
}

// LLMService answers with a Claude model.
type LLMService struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamEvent holds the fields read from any stream event. Only
// content_block_delta, error and message_stop matter; ping and the
// start/stop events of blocks are skipped.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewLLMService creates the service, filling in defaults.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	return &LLMService{
		http:    &http.Client{Timeout: cmp.Or(cfg.Timeout, DefaultTimeout)},
		baseURL: strings.TrimSuffix(cmp.Or(cfg.BaseURL, DefaultBaseURL), "/"),
		apiKey:  cfg.APIKey,
		model:   cmp.Or(cfg.Model, DefaultModel),
	}, nil
}

// Chat returns the whole reply.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	return stream.Collect(s.ChatStream(ctx, messages, opts))
}

// ChatStream yields text deltas. System messages are joined into the
// request's system prompt since the API takes no system role.
func (s *LLMService) ChatStream(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		body, err := json.Marshal(s.buildRequest(messages, opts))
		if err != nil {
			yield("", fmt.Errorf("marshal request: %w", err))
			return
		}
		resp, err := s.do(ctx, http.MethodPost, "/v1/messages", body)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		for ev, err := range stream.Events(resp.Body) {
			if err != nil {
				yield("", fmt.Errorf("anthropic: read stream: %w", err))
				return
			}
			var data streamEvent
			if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
				yield("", fmt.Errorf("anthropic: decode stream event: %w", err))
				return
			}

			switch data.Type {
			case "content_block_delta":
				if data.Delta.Type == "text_delta" && data.Delta.Text != "" && !yield(data.Delta.Text, nil) {
					return
				}
			case "error":
				apiErr := &APIError{Message: "unknown error"}
				if data.Error != nil {
					apiErr.Type, apiErr.Message = data.Error.Type, data.Error.Message
				}
				yield("", apiErr)
				return
			case "message_stop":
				return
			}
		}
	}
}

func (s *LLMService) buildRequest(messages []driven.ChatMessage, opts driven.ChatOptions) messagesRequest {
	req := messagesRequest{
		Model:       s.model,
		Messages:    make([]message, 0, len(messages)),
		MaxTokens:   cmp.Or(opts.MaxTokens, DefaultMaxTokens),
		Temperature: opts.Temperature,
		Stream:      true,
	}
	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, message{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

// do sends an authenticated request. Non-200 responses become *APIError
// and the body is only returned for status 200.
func (s *LLMService) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var envelope streamEvent
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
		apiErr.Type, apiErr.Message = envelope.Error.Type, envelope.Error.Message
	}
	return nil, apiErr
}

func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists the models, which checks the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodGet, "/v1/models", nil)
	if err != nil {
		return fmt.Errorf("anthropic: ping: %w", err)
	}
	return resp.Body.Close()
}

func (s *LLMService) Close() error {
	return nil
}
