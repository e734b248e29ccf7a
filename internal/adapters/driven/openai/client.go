// Package openai is the HTTP client shared by the OpenAI embedding and
// chat adapters. It also serves OpenAI compatible endpoints such as Azure
// OpenAI through BaseURL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultRetryAfter is assumed when a 429 response carries no usable
// Retry-After header.
const DefaultRetryAfter = 20 * time.Second

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 4 << 10

// ErrRateLimited matches an APIError with status 429.
var ErrRateLimited = errors.New("rate limited")

// APIError is a non-200 response. The message comes from the
// {"error": {"message": ...}} envelope when present.
type APIError struct {
	Status     int
	Type       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai error (status %d): %s", e.Status, e.Message)
}

// Is reports a 429 as ErrRateLimited.
func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}

// ErrorBody is the error envelope, also sent inside stream events.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Client talks to one OpenAI compatible API with one key.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient returns a client for baseURL, or DefaultBaseURL when empty.
func NewClient(apiKey, baseURL string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Post sends body as JSON to path. accept is the wanted media type, empty
// for JSON. The caller closes the response body, which is only returned
// for status 200.
func (c *Client) Post(ctx context.Context, path, accept string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return c.do(req)
}

// Ping lists the models, which checks the key without running inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: create ping request: %w", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("openai: ping: %w", err)
	}
	return resp.Body.Close()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var envelope struct {
		Error *ErrorBody `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
		apiErr.Message, apiErr.Type = envelope.Error.Message, envelope.Error.Type
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return nil, apiErr
}

// ParseRetryAfter reads a Retry-After header given in seconds. HTTP dates
// and missing values yield DefaultRetryAfter.
func ParseRetryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
