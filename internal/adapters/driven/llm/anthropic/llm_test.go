package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewLLMService(Config{APIKey: "ak-test", BaseURL: srv.URL})
	require.NoError(t, err)
	return svc
}

func event(w http.ResponseWriter, name, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.Error(t, err)
}

func TestChatStream(t *testing.T) {
	var got messagesRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		event(w, "message_start", `{"type":"message_start","message":{"id":"m1"}}`)
		event(w, "content_block_start", `{"type":"content_block_start","index":0}`)
		event(w, "ping", `{"type":"ping"}`)
		event(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"Lawful"}}`)
		event(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"ness"}}`)
		event(w, "message_stop", `{"type":"message_stop"}`)
	})

	msgs := []driven.ChatMessage{
		{Role: "system", Content: "Use the context."},
		{Role: "user", Content: "First principle?"},
	}

	var fragments []string
	for fragment, err := range svc.ChatStream(context.Background(), msgs, driven.ChatOptions{Temperature: 0.7}) {
		require.NoError(t, err)
		fragments = append(fragments, fragment)
	}

	assert.Equal(t, []string{"Lawful", "ness"}, fragments)
	assert.Equal(t, "Use the context.", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.True(t, got.Stream)
}

func TestChatStream_ErrorEvent(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		event(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"x"}}`)
		event(w, "error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
	})

	text, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorContains(t, err, "Overloaded")
	assert.Equal(t, "x", text)
}

func TestChatStream_HTTPError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`))
	})

	_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorContains(t, err, "bad model")
}

func TestPing(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
	})
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestChatStream_HTTPErrorIsTyped(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	})

	_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "authentication_error", apiErr.Type)
	assert.Equal(t, "anthropic error (status 401): invalid x-api-key", err.Error())
}

func TestChatStream_StopsAtMessageStop(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		event(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":"Art. 6"}}`)
		event(w, "message_stop", `{"type":"message_stop"}`)
		event(w, "content_block_delta", `{"type":"content_block_delta","delta":{"type":"text_delta","text":" ignored"}}`)
	})

	text, err := svc.Chat(context.Background(), nil, driven.ChatOptions{MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "Art. 6", text)
}

func TestPing_Failure(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	err := svc.Ping(context.Background())
	assert.ErrorContains(t, err, "status 403")
	assert.ErrorContains(t, err, "forbidden")
}
