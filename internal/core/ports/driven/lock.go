package driven

import "context"

// IndexLock grants exclusive access to the vector tables for a build.
type IndexLock interface {
	// Acquire blocks until the lock is held, the context ends or the
	// implementation gives up, returning domain.ErrIndexLocked.
	Acquire(ctx context.Context) error

	// Release gives the lock up. Releasing a lock not held is a no-op.
	Release() error
}
