package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestNewClient_Defaults(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("", 0).BaseURL())
	assert.Equal(t, "http://gpu-box:11434", NewClient("http://gpu-box:11434/", 0).BaseURL())
}

func TestPost(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "nomic-embed-text", got["model"])
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := c.Post(context.Background(), "/api/embed", map[string]string{"model": "nomic-embed-text"})
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
}

func TestPost_APIError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "json error", body: `{"error":"model \"llama9\" not found"}`, want: `model "llama9" not found`},
		{name: "plain text", body: "upstream timeout\n", want: "upstream timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Post(context.Background(), "/api/chat", struct{}{})

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusNotFound, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
			assert.ErrorContains(t, err, "status 404")
		})
	}
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
	})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestPing_Unavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.ErrorContains(t, c.Ping(context.Background()), "status 503")
}
