package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls a config file and reports content changes through a callback.
// Polling on mtime + content hash keeps the dependency surface flat; reload
// latency of a few seconds is fine for a config file.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	mtime   time.Time
	sum     [sha256.Size]byte

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval overrides the 5s polling interval. Non-positive values are
// ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path once, then polls it in the background. onChange fires
// with the previous and freshly loaded config whenever the file content
// changes and still parses; a broken edit is logged and the old config stays
// active.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	snap, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.sum, w.mtime = snap.cfg, snap.sum, snap.mtime

	go w.run()
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends the polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) run() {
	tick := time.NewTicker(w.interval)
	defer tick.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-tick.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	// Stat first so untouched files cost no read or hash.
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher stat failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.mtime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	snap, err := w.read()
	if err != nil {
		slog.Warn("config watcher keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if snap.sum == w.sum {
		// Touched but identical content.
		w.mtime = snap.mtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current, w.sum, w.mtime = snap.cfg, snap.sum, snap.mtime
	w.mu.Unlock()

	slog.Info("configuration reloaded", "path", w.path)

	// Callback runs unlocked so it may call Current.
	if w.onChange != nil {
		w.onChange(old, snap.cfg)
	}
}

type fileSnapshot struct {
	cfg   *Config
	sum   [sha256.Size]byte
	mtime time.Time
}

// read loads, hashes and validates the file in one pass.
func (w *Watcher) read() (fileSnapshot, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fileSnapshot{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return fileSnapshot{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return fileSnapshot{}, err
	}

	return fileSnapshot{
		cfg:   cfg,
		sum:   sha256.Sum256(data),
		mtime: info.ModTime(),
	}, nil
}
