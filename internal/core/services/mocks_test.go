package services

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder returns fixed vectors per text, falling back to a vector
// derived from the text length.
type mockEmbedder struct {
	mu      sync.Mutex
	dims    int
	vectors map[string][]float32
	failAt  int // 1-based EmbedBatch call that fails; 0 never fails
	err     error
	batches [][]string
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims, vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	v := make([]float32, m.dims)
	for i := range v {
		v[i] = float32(len(text)%7+1) / float32(i+1)
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil && m.failAt == 0 {
		return nil, m.err
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, texts)
	if m.failAt > 0 && len(m.batches) == m.failAt {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM streams fragments and optionally fails after them.
type mockLLM struct {
	mu        sync.Mutex
	fragments []string
	err       error
	calls     [][]driven.ChatMessage
	opts      []driven.ChatOptions
	// block, when set, is waited on before the first fragment.
	block chan struct{}
}

func (m *mockLLM) record(messages []driven.ChatMessage, opts driven.ChatOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]driven.ChatMessage(nil), messages...))
	m.opts = append(m.opts, opts)
}

func (m *mockLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	var b strings.Builder
	for frag, err := range m.ChatStream(ctx, messages, opts) {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(frag)
	}
	return b.String(), nil
}

func (m *mockLLM) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) iter.Seq2[string, error] {
	m.record(messages, opts)
	return func(yield func(string, error) bool) {
		if m.block != nil {
			select {
			case <-m.block:
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			}
		}
		for _, f := range m.fragments {
			if !yield(f, nil) {
				return
			}
		}
		if m.err != nil {
			yield("", m.err)
		}
	}
}

func (m *mockLLM) lastCall() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockLock is an in-process IndexLock.
type mockLock struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (l *mockLock) Acquire(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return domain.ErrIndexLocked
	}
	l.held = true
	l.acquired++
	return nil
}

func (l *mockLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released++
	return nil
}

// mockLexical scores texts from a fixed table.
type mockLexical struct {
	scores map[string]float64
	err    error
}

func (m *mockLexical) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = m.scores[t]
	}
	return out, nil
}

// mockPrompts serves templates from a map.
type mockPrompts map[string]string

func (m mockPrompts) Load(name string) (string, error) {
	if t, ok := m[name]; ok {
		return t, nil
	}
	return "", errors.New("prompt not found")
}

func (m mockPrompts) Reload() {}

// recordingMetrics counts every metric call.
type recordingMetrics struct {
	mu        sync.Mutex
	extracted map[bool]int
	chunks    int
	batches   []int
	searches  []int
	turns     []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{extracted: make(map[bool]int)}
}

func (m *recordingMetrics) DocumentExtracted(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extracted[ok]++
}

func (m *recordingMetrics) ChunksProduced(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks += n
}

func (m *recordingMetrics) BatchIndexed(size int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, size)
}

func (m *recordingMetrics) SearchServed(results int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, results)
}

func (m *recordingMetrics) TurnCompleted(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, outcome)
}

func (m *recordingMetrics) turnOutcomes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.turns...)
}

// stubRetriever returns fixed results.
type stubRetriever struct {
	results []domain.SearchResult
	err     error
	opts    []domain.SearchOptions
}

func (s *stubRetriever) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	s.opts = append(s.opts, opts)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func strPtr(s string) *string { return &s }
