// Package lock provides the build lock: an advisory lock on a file that
// also records the owner's PID.
//
// The operating system drops the lock when its owner exits, so a lock
// left by a crashed build needs no cleanup. The PID is only read back to
// name the owner in errors.
package lock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Defaults for waiting on a held lock.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultRetryWait = 500 * time.Millisecond
)

var _ driven.IndexLock = (*FileLock)(nil)

// FileLock is an exclusive lock on a file. Handles conflict with each
// other whether they live in one process or several.
type FileLock struct {
	path      string
	timeout   time.Duration
	retryWait time.Duration

	mu   sync.Mutex
	file *os.File // open while held
}

type Option func(*FileLock)

// WithTimeout sets how long Acquire waits for a held lock.
func WithTimeout(d time.Duration) Option {
	return func(l *FileLock) { l.timeout = d }
}

// WithRetryWait sets the polling interval while waiting.
func WithRetryWait(d time.Duration) Option {
	return func(l *FileLock) { l.retryWait = d }
}

// New creates a lock at path. The file is created on first use and is
// never removed.
func New(path string, opts ...Option) *FileLock {
	l := &FileLock{
		path:      path,
		timeout:   DefaultTimeout,
		retryWait: DefaultRetryWait,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *FileLock) Path() string {
	return l.path
}

// Acquire takes the lock, polling while another handle holds it. It
// returns domain.ErrIndexLocked when the timeout elapses or ctx ends.
func (l *FileLock) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return fmt.Errorf("%w: already held by this handle", domain.ErrIndexLocked)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}

	start := time.Now()
	for {
		ok, err := tryLock(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("locking %s: %w", l.path, err)
		}
		if ok {
			break
		}

		owner := l.owner()
		elapsed := time.Since(start)
		if elapsed >= l.timeout {
			f.Close()
			return fmt.Errorf("%w: held by %s after waiting %v",
				domain.ErrIndexLocked, owner, elapsed.Round(time.Millisecond))
		}
		logger.Debug("index locked by %s, waiting", owner)
		select {
		case <-ctx.Done():
			f.Close()
			return fmt.Errorf("%w: %w", domain.ErrIndexLocked, ctx.Err())
		case <-time.After(l.retryWait):
		}
	}

	// Whatever a previous owner left behind is overwritten.
	if err := writePID(f); err != nil {
		logger.Warn("index lock: recording PID: %v", err)
	}
	l.file = f
	logger.Debug("index lock acquired (PID %d)", os.Getpid())
	return nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := f.WriteString(strconv.Itoa(os.Getpid()))
	return err
}

// owner describes the holder recorded in the file.
func (l *FileLock) owner() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return "another process"
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return "another process"
	}
	return "process " + strconv.Itoa(pid)
}

// Release clears the recorded PID and gives the lock up. The file stays,
// since removing it would let a waiter lock a file no longer at path.
func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	err := errors.Join(f.Truncate(0), unlock(f), f.Close())
	if err != nil {
		return fmt.Errorf("releasing index lock: %w", err)
	}
	logger.Debug("index lock released")
	return nil
}
