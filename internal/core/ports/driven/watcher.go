package driven

import "context"

// ChangeWatcher reports file changes below a directory.
type ChangeWatcher interface {
	// Watch streams the paths of created, written, removed or renamed
	// files below dir, subdirectories included. The channel is closed
	// when ctx ends or the watch fails.
	Watch(ctx context.Context, dir string) (<-chan string, error)
}
