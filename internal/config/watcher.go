package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors emit for one save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher monitors the config file, plus any files registered with
// [Watcher.WatchFile], and calls back when their content changes.
//
// Parent directories are watched rather than the files themselves so that
// editors which save by rename are picked up.
type Watcher struct {
	path     string
	onChange func(old, new *Config)
	debounce time.Duration
	fsw      *fsnotify.Watcher

	mu       sync.Mutex
	current  *Config
	lastHash [sha256.Size]byte
	files    map[string]*watchedFile // abs path → file
	keys     map[string]string       // key → abs path
	timers   map[string]*time.Timer
	dirs     map[string]bool

	closeOnce sync.Once
}

type watchedFile struct {
	onChange func(path string)
	hash     [sha256.Size]byte
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after the last event before a file is
// re-read. The default is [DefaultDebounce].
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher loads the config at path and starts watching it. Events are only
// processed while [Watcher.Run] is running.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	w := &Watcher{
		path:     abs,
		onChange: onChange,
		debounce: DefaultDebounce,
		files:    make(map[string]*watchedFile),
		keys:     make(map[string]string),
		timers:   make(map[string]*time.Timer),
		dirs:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = sha256.Sum256(data)

	if w.fsw, err = fsnotify.NewWatcher(); err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	if err := w.addDir(filepath.Dir(abs)); err != nil {
		_ = w.fsw.Close()
		return nil, err
	}
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// WatchFile registers an auxiliary file under key. onChange runs after the
// file's content changes. Registering the same key again replaces the
// previous path.
func (w *Watcher) WatchFile(key, path string, onChange func(path string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %q: %w", path, err)
	}
	var hash [sha256.Size]byte
	if data, err := os.ReadFile(abs); err == nil {
		hash = sha256.Sum256(data)
	}

	w.mu.Lock()
	if old, ok := w.keys[key]; ok {
		delete(w.files, old)
	}
	w.keys[key] = abs
	w.files[abs] = &watchedFile{onChange: onChange, hash: hash}
	w.mu.Unlock()

	return w.addDir(filepath.Dir(abs))
}

func (w *Watcher) addDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("config: watch %q: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

// Run processes file events until ctx is cancelled, then releases the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.schedule(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher: fsnotify error", "err", err)
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name != w.path && w.files[name] == nil {
		return
	}
	if t, ok := w.timers[name]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[name] = time.AfterFunc(w.debounce, func() {
		if name == w.path {
			w.reloadConfig()
		} else {
			w.reloadFile(name)
		}
	})
}

// reloadConfig re-reads the config file and, if it has changed and is valid,
// swaps it in and calls onChange. Invalid files keep the old config.
func (w *Watcher) reloadConfig() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot read file", "path", w.path, "err", err)
		return
	}
	hash := sha256.Sum256(data)

	w.mu.Lock()
	if hash == w.lastHash {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)

	// Outside the lock so the callback can call Current.
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

func (w *Watcher) reloadFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("config watcher: cannot read file", "path", path, "err", err)
		return
	}
	hash := sha256.Sum256(data)

	w.mu.Lock()
	f, ok := w.files[path]
	if !ok || f.hash == hash {
		w.mu.Unlock()
		return
	}
	f.hash = hash
	fn := f.onChange
	w.mu.Unlock()

	fn(path)
}
