package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleEvent(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "gdpr.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF"), 0644))
	sub := filepath.Join(dir, "annex")
	require.NoError(t, os.Mkdir(sub, 0755))

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{name: "create file", event: fsnotify.Event{Name: file, Op: fsnotify.Create}, want: true},
		{name: "write file", event: fsnotify.Event{Name: file, Op: fsnotify.Write}, want: true},
		{name: "remove file", event: fsnotify.Event{Name: filepath.Join(dir, "gone.pdf"), Op: fsnotify.Remove}, want: true},
		{name: "rename file", event: fsnotify.Event{Name: filepath.Join(dir, "old.pdf"), Op: fsnotify.Rename}, want: true},
		{name: "chmod ignored", event: fsnotify.Event{Name: file, Op: fsnotify.Chmod}},
		{name: "create directory ignored", event: fsnotify.Event{Name: sub, Op: fsnotify.Create}},
		{name: "hidden file ignored", event: fsnotify.Event{Name: filepath.Join(dir, ".gdpr.pdf.swp"), Op: fsnotify.Write}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := handleEvent(nil, tt.event)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.event.Name, path)
			}
		})
	}
}

func TestWatch_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := New().Watch(ctx, dir)
	require.NoError(t, err)

	target := filepath.Join(dir, "nested", "recitals.md")
	require.NoError(t, os.WriteFile(target, []byte("# Recital 1"), 0644))

	select {
	case path := <-events:
		assert.Equal(t, target, path)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	for range events {
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	_, err := New().Watch(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWatch_WatcherCreationFails(t *testing.T) {
	w := &Watcher{newWatcher: func() (*fsnotify.Watcher, error) {
		return nil, errors.New("inotify limit reached")
	}}
	_, err := w.Watch(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "inotify limit reached")
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden("/data/.DS_Store"))
	assert.False(t, isHidden("/data/.cache/gdpr.pdf"))
	assert.False(t, isHidden("gdpr.pdf"))
}
