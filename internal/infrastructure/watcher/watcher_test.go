package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetmanager/core/internal/infrastructure/logger"
)

// waitForCallback waits up to timeout for the callback channel to receive a value.
func waitForCallback(ch <-chan string, timeout time.Duration) (string, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		return "", false
	}
}

func TestWatcher_DetectsDocumentWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	w, err := New(logger.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(path, func(p string) { changed <- p }))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"edited":true}`), 0o644))

	got, ok := waitForCallback(changed, 2*time.Second)
	require.True(t, ok, "expected callback for document write")
	want, err := filepath.Abs(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWatcher_ReportsFinalContentOfBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	w, err := New(logger.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	seen := make(chan string, 10)
	require.NoError(t, w.Watch(path, func(p string) {
		data, _ := os.ReadFile(p)
		seen <- string(data)
	}))

	time.Sleep(50 * time.Millisecond)

	// In-place edit: truncate and write half, then finish shortly after
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"a":`)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = f.WriteString(`1}`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, ok := waitForCallback(seen, 2*time.Second)
	require.True(t, ok, "expected callback after edit")
	assert.Equal(t, `{"a":1}`, got)

	_, ok = waitForCallback(seen, 300*time.Millisecond)
	assert.False(t, ok, "expected a single callback for one burst")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	w, err := New(logger.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan string, 10)
	require.NoError(t, w.Watch(path, func(p string) { changed <- p }))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	_, ok := waitForCallback(changed, 300*time.Millisecond)
	assert.False(t, ok, "unexpected callback for unrelated file")
}

func TestWatcher_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SAVE", "data.json")

	w, err := New(logger.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Watch(path, func(string) {}))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(logger.NewNop())
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
