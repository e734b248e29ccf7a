package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

// mockChanges hands out a channel the test writes to.
type mockChanges struct {
	events chan string
	err    error
}

func (m *mockChanges) Watch(context.Context, string) (<-chan string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.events, nil
}

// countingPipeline counts runs.
type countingPipeline struct {
	mu   sync.Mutex
	runs int
	err  error
}

func (p *countingPipeline) Run(context.Context, driving.PipelineOptions) (*domain.PipelineReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs++
	if p.err != nil {
		return nil, p.err
	}
	return &domain.PipelineReport{Chunks: p.runs}, nil
}

func (p *countingPipeline) Extract(context.Context, string) ([]*domain.StructuredDocument, []string, error) {
	return nil, nil, nil
}

func (p *countingPipeline) Chunk(context.Context, []*domain.StructuredDocument) ([]domain.Chunk, error) {
	return nil, nil
}

func (p *countingPipeline) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func TestWatcher_RunsInitiallyAndDebouncesChanges(t *testing.T) {
	changes := &mockChanges{events: make(chan string)}
	pipeline := &countingPipeline{}
	w := NewWatcher(pipeline, changes, driving.PipelineOptions{InputDir: "data/pdf"}, WithDebounce(20*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	require.Eventually(t, func() bool { return pipeline.count() == 1 }, time.Second, time.Millisecond)

	for _, p := range []string{"a.pdf", "b.pdf", "a.pdf"} {
		changes.events <- p
	}
	require.Eventually(t, func() bool { return pipeline.count() == 2 }, time.Second, time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 2, pipeline.count(), "a burst must trigger a single run")

	require.NoError(t, w.Stop())
	require.NoError(t, <-done)
}

func TestWatcher_CallbackReceivesErrors(t *testing.T) {
	changes := &mockChanges{events: make(chan string)}
	pipeline := &countingPipeline{err: errors.New("extraction tool missing")}

	var got []error
	var mu sync.Mutex
	w := NewWatcher(pipeline, changes, driving.PipelineOptions{InputDir: "in"},
		WithRunCallback(func(_ *domain.PipelineReport, err error) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, err)
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorContains(t, got[0], "extraction tool missing")
}

func TestWatcher_ClosedEventsEndsLoop(t *testing.T) {
	changes := &mockChanges{events: make(chan string)}
	close(changes.events)
	w := NewWatcher(&countingPipeline{}, changes, driving.PipelineOptions{InputDir: "in"})

	assert.NoError(t, w.Start(context.Background()))
	assert.NoError(t, w.Stop())
}

func TestWatcher_Errors(t *testing.T) {
	w := NewWatcher(&countingPipeline{}, &mockChanges{}, driving.PipelineOptions{})
	assert.ErrorIs(t, w.Start(context.Background()), domain.ErrInvalidInput)

	w = NewWatcher(&countingPipeline{}, &mockChanges{err: errors.New("too many open files")},
		driving.PipelineOptions{InputDir: "in"})
	assert.ErrorContains(t, w.Start(context.Background()), "too many open files")
}

func TestWatcher_StopWhenNotRunning(t *testing.T) {
	w := NewWatcher(&countingPipeline{}, &mockChanges{}, driving.PipelineOptions{InputDir: "in"})
	assert.NoError(t, w.Stop())
}
