package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/plotwright/plotwright/internal/config"
)

const watcherBaseYAML = `
series:
  name: Test Series
server:
  log_level: info
providers:
  llm:
    name: groq
    api_key: gsk_test
    model: llama-3.3-70b-versatile
knowledge:
  postgres_dsn: "postgres://localhost/test"
  embedding_dimensions: 1536
`

// Same as the base config with log_level flipped to debug.
const watcherEditedYAML = `
series:
  name: Test Series
server:
  log_level: debug
providers:
  llm:
    name: groq
    api_key: gsk_test
    model: llama-3.3-70b-versatile
knowledge:
  postgres_dsn: "postgres://localhost/test"
  embedding_dimensions: 1536
`

const watcherBrokenYAML = `
server:
  log_level: bananas
`

// reloadRecorder collects onChange invocations and signals on each one.
type reloadRecorder struct {
	mu       sync.Mutex
	old, new *config.Config
	count    int
	fired    chan struct{}
}

func newReloadRecorder() *reloadRecorder {
	return &reloadRecorder{fired: make(chan struct{}, 8)}
}

func (r *reloadRecorder) onChange(old, new *config.Config) {
	r.mu.Lock()
	r.old, r.new = old, new
	r.count++
	r.mu.Unlock()
	select {
	case r.fired <- struct{}{}:
	default:
	}
}

func (r *reloadRecorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func startWatcher(t *testing.T, content string, rec *reloadRecorder) (*config.Watcher, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var cb func(old, new *config.Config)
	if rec != nil {
		cb = rec.onChange
	}
	w, err := config.NewWatcher(path, cb, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	t.Cleanup(w.Stop)
	return w, path
}

func TestWatcherLoadsOnStart(t *testing.T) {
	t.Parallel()
	w, _ := startWatcher(t, watcherBaseYAML, nil)

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() = nil after start")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
}

func TestWatcherReloadsOnEdit(t *testing.T) {
	t.Parallel()
	rec := newReloadRecorder()
	w, path := startWatcher(t, watcherBaseYAML, rec)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(watcherEditedYAML), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case <-rec.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("edit was never picked up")
	}

	rec.mu.Lock()
	oldLevel, newLevel := rec.old.Server.LogLevel, rec.new.Server.LogLevel
	rec.mu.Unlock()

	if oldLevel != config.LogInfo || newLevel != config.LogDebug {
		t.Errorf("callback levels = (%q, %q), want (info, debug)", oldLevel, newLevel)
	}
	if got := w.Current().Server.LogLevel; got != config.LogDebug {
		t.Errorf("Current() log_level = %q, want debug", got)
	}
}

func TestWatcherRejectsBrokenEdit(t *testing.T) {
	t.Parallel()
	rec := newReloadRecorder()
	w, path := startWatcher(t, watcherBaseYAML, rec)

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(watcherBrokenYAML), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if n := rec.calls(); n != 0 {
		t.Errorf("broken edit fired %d callbacks, want 0", n)
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current() log_level = %q, want the pre-edit info", got)
	}
}

func TestWatcherIgnoresTouch(t *testing.T) {
	t.Parallel()
	rec := newReloadRecorder()
	_, path := startWatcher(t, watcherBaseYAML, rec)

	time.Sleep(100 * time.Millisecond)
	later := time.Now().Add(time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("touch config: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if n := rec.calls(); n != 0 {
		t.Errorf("mtime-only change fired %d callbacks, want 0", n)
	}
}

func TestWatcherMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher("/nonexistent/config.yaml", nil); err == nil {
		t.Fatal("NewWatcher should fail when the file does not exist")
	}
}

func TestWatcherStopTwice(t *testing.T) {
	t.Parallel()
	w, _ := startWatcher(t, watcherBaseYAML, nil)

	w.Stop()
	w.Stop()
}
