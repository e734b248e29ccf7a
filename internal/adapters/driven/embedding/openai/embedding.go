// Package openai embeds text with the OpenAI embeddings endpoint.
package openai

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	api "github.com/custodia-labs/gdprqa/internal/adapters/driven/openai"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultModel   = "text-embedding-3-large"
	DefaultTimeout = 60 * time.Second

	// DefaultRequestsPerSecond keeps a full index build well under the
	// per-minute request quota of the lowest usage tier.
	DefaultRequestsPerSecond = 5.0

	// DefaultMaxRetries is the number of retries after a 429 response.
	DefaultMaxRetries = 3
)

// fallbackDimensions is assumed for models missing from knownDimensions.
const fallbackDimensions = 1536

var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the embedding service. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens the vectors of text-embedding-3 models. Zero
	// keeps the model's native width.
	Dimensions int

	// RequestsPerSecond throttles requests. Negative disables throttling.
	RequestsPerSecond float64

	// MaxRetries bounds retries after a 429 response.
	MaxRetries int
}

// EmbeddingService embeds passages in batches, throttled and retried on
// rate limiting.
type EmbeddingService struct {
	client     *api.Client
	model      string
	dimensions int
	shortens   bool
	limiter    *rate.Limiter
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbeddingService creates the service, filling in defaults.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client, err := api.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	svc := &EmbeddingService{
		client:     client,
		model:      cmp.Or(cfg.Model, DefaultModel),
		maxRetries: cfg.MaxRetries,
		sleep:      sleepCtx,
	}
	if svc.maxRetries == 0 {
		svc.maxRetries = DefaultMaxRetries
	}

	// Only text-embedding-3 models accept a dimensions override.
	svc.shortens = strings.HasPrefix(svc.model, "text-embedding-3-")
	switch dims, known := knownDimensions[svc.model]; {
	case cfg.Dimensions > 0:
		svc.dimensions = cfg.Dimensions
	case known:
		svc.dimensions = dims
	default:
		svc.dimensions = fallbackDimensions
	}

	switch rps := cfg.RequestsPerSecond; {
	case rps < 0:
		svc.limiter = rate.NewLimiter(rate.Inf, 1)
	case rps == 0:
		svc.limiter = rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1)
	default:
		svc.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return svc, nil
}

// Embed embeds a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request, returning vectors in input
// order. A 429 is retried after its Retry-After delay.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := embeddingRequest{Model: s.model, Input: texts}
	if s.shortens {
		req.Dimensions = s.dimensions
	}

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("openai: rate limiter: %w", err)
		}

		vecs, err := s.embed(ctx, req)
		var apiErr *api.APIError
		if !errors.Is(err, api.ErrRateLimited) || !errors.As(err, &apiErr) || attempt >= s.maxRetries {
			return vecs, err
		}

		logger.Warn("openai: embeddings rate limited, retrying in %s (attempt %d/%d)",
			apiErr.RetryAfter, attempt+1, s.maxRetries)
		if err := s.sleep(ctx, apiErr.RetryAfter); err != nil {
			return nil, err
		}
	}
}

func (s *EmbeddingService) embed(ctx context.Context, req embeddingRequest) ([][]float32, error) {
	resp, err := s.client.Post(ctx, "/embeddings", "", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("openai: decode embeddings: %w", err)
	}

	// The API may return the vectors in any order.
	vecs := make([][]float32, len(req.Input))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("openai: missing embedding for input %d", i)
		}
	}
	return vecs, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks the key against the models endpoint.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *EmbeddingService) Close() error {
	return nil
}
