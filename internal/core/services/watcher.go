package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// DefaultDebounce is how long the input directory must stay quiet before a
// rebuild starts.
const DefaultDebounce = 2 * time.Second

// Watcher re-runs the pipeline whenever the input directory changes.
// Bursts of change events are coalesced into one run.
type Watcher struct {
	pipeline driving.PipelineService
	changes  driven.ChangeWatcher
	opts     driving.PipelineOptions
	debounce time.Duration
	onRun    func(*domain.PipelineReport, error)

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period (default 2s).
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRunCallback is called after every pipeline run.
func WithRunCallback(fn func(*domain.PipelineReport, error)) WatcherOption {
	return func(w *Watcher) {
		w.onRun = fn
	}
}

// NewWatcher creates a watcher for opts.InputDir.
func NewWatcher(
	pipeline driving.PipelineService,
	changes driven.ChangeWatcher,
	opts driving.PipelineOptions,
	options ...WatcherOption,
) *Watcher {
	w := &Watcher{
		pipeline: pipeline,
		changes:  changes,
		opts:     opts,
		debounce: DefaultDebounce,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// Start runs the pipeline once and then after every change. It blocks
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.opts.InputDir == "" {
		return fmt.Errorf("%w: watch needs an input directory", domain.ErrInvalidInput)
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	events, err := w.changes.Watch(ctx, w.opts.InputDir)
	if err != nil {
		w.markStopped()
		return fmt.Errorf("watch %s: %w", w.opts.InputDir, err)
	}

	w.wg.Add(1)
	defer w.wg.Done()

	w.runOnce(ctx)
	logger.Info("watch: waiting for changes in %s", w.opts.InputDir)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.markStopped()
			return ctx.Err()
		case <-stopCh:
			return nil
		case path, ok := <-events:
			if !ok {
				w.markStopped()
				return nil
			}
			logger.Debug("watch: %s changed", path)
			timer.Reset(w.debounce)
		case <-timer.C:
			w.runOnce(ctx)
		}
	}
}

// Stop ends the loop and waits for an in-flight run to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *Watcher) markStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

func (w *Watcher) runOnce(ctx context.Context) {
	report, err := w.pipeline.Run(ctx, w.opts)
	if err != nil {
		logger.Error(err, "watch: pipeline run failed")
	} else {
		logger.Info("watch: indexed %d chunks (cache hit: %t)", report.Chunks, report.CacheHit)
	}
	if w.onRun != nil {
		w.onRun(report, err)
	}
}
