package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/replus/internal/watcher"
)

func startWatcher(t *testing.T, cfg watcher.Config) <-chan watcher.Change {
	t.Helper()
	w, err := watcher.New(cfg)
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	changes, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return changes
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "date.yaml")
	require.NoError(t, os.WriteFile(path, []byte("$PATTERNS: [x]"), 0o644))

	changes := startWatcher(t, watcher.Config{Dir: dir, Debounce: 50 * time.Millisecond})

	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("$PATTERNS: [x%d]", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case change := <-changes:
		assert.Equal(t, []string{"date.yaml"}, change.Files)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected change but got timeout")
	}

	select {
	case <-changes:
		t.Fatal("unexpected second change")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_IgnoresNonTemplateFiles(t *testing.T) {
	dir := t.TempDir()
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("initial"), 0o644))

	changes := startWatcher(t, watcher.Config{Dir: dir, Debounce: 50 * time.Millisecond})

	require.NoError(t, os.WriteFile(other, []byte("changed"), 0o644))

	select {
	case <-changes:
		t.Fatal("should not signal for non-template files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_CollectsDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, watcher.Config{Dir: dir, Debounce: 80 * time.Millisecond})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{ }"), 0o644))

	select {
	case change := <-changes:
		assert.ElementsMatch(t, []string{"a.json", "b.yml"}, change.Files)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected change but got timeout")
	}
}

func TestWatcher_RemovalSignals(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "city.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	changes := startWatcher(t, watcher.Config{Dir: dir, Debounce: 50 * time.Millisecond})
	require.NoError(t, os.Remove(path))

	select {
	case change := <-changes:
		assert.Equal(t, []string{"city.json"}, change.Files)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected change for removed template")
	}
}

func TestWatcher_CustomFilter(t *testing.T) {
	dir := t.TempDir()
	changes := startWatcher(t, watcher.Config{
		Dir:      dir,
		Debounce: 50 * time.Millisecond,
		Filter:   func(name string) bool { return strings.HasSuffix(name, ".tmpl") },
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.tmpl"), []byte("{}"), 0o644))

	select {
	case change := <-changes:
		assert.Equal(t, []string{"x.tmpl"}, change.Files)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected change for filtered file")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := watcher.New(watcher.Config{Dir: filepath.Join(t.TempDir(), "nope"), Debounce: time.Millisecond})
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.Error(t, err)
}

func TestWatcher_Stop(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	_, err = w.Start()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/models")
	assert.Equal(t, "/models", cfg.Dir)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce)
	assert.Nil(t, cfg.Filter)
}
