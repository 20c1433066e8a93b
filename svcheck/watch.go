package svcheck

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"vawter.tech/stopper"
)

// DefaultWatchDebounce is the default debounce applied to unit file events
// so a package upgrade rewriting a unit file produces one event, not many
const DefaultWatchDebounce = 250 * time.Millisecond

// DefaultUnitDirs are the systemd unit directories watched by default
var DefaultUnitDirs = []string{
	"/etc/systemd/system",
	"/run/systemd/system",
	"/usr/lib/systemd/system",
}

// unitSuffixes are the unit file types worth reporting
var unitSuffixes = []string{
	".service", ".socket", ".timer", ".path", ".mount", ".target",
}

// UnitEvent reports a unit whose file changed on disk
type UnitEvent struct {
	// Unit is the unit file's base name
	Unit string
	// Path is the full path of the changed file
	Path string
	// Err is set instead of Unit/Path when the watcher itself failed
	Err error
}

// WatchCleanupFunc stops a watch and releases its resources
type WatchCleanupFunc func() error

// UnitWatcher watches systemd unit directories and emits an event for each
// unit file created, modified, or removed. Events are debounced per unit.
type UnitWatcher struct {
	// Dirs are the directories to watch (default: DefaultUnitDirs)
	Dirs []string

	// Debounce is the per-unit event coalescing window
	Debounce time.Duration

	logger *zap.Logger
}

// WatcherOption configures a UnitWatcher
type WatcherOption func(*UnitWatcher)

// WithUnitDirs overrides the watched unit directories
func WithUnitDirs(dirs ...string) WatcherOption {
	return func(w *UnitWatcher) {
		w.Dirs = dirs
	}
}

// WithDebounce sets the per-unit event coalescing window
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *UnitWatcher) {
		w.Debounce = d
	}
}

// WithWatcherLogger sets the logger used for watch diagnostics
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *UnitWatcher) {
		w.logger = logger
	}
}

// NewUnitWatcher creates a UnitWatcher with default settings
func NewUnitWatcher(opts ...WatcherOption) *UnitWatcher {
	w := &UnitWatcher{
		Dirs:     DefaultUnitDirs,
		Debounce: DefaultWatchDebounce,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Watch starts watching the unit directories. It returns a channel of
// events and a cleanup function; directories that do not exist are skipped,
// but at least one must be watchable.
func (w *UnitWatcher) Watch(ctx context.Context) (<-chan UnitEvent, WatchCleanupFunc, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, &OpError{Op: OpWatch, Err: err}
	}

	added := 0
	merr := &MultiError{}
	for _, dir := range w.Dirs {
		if err := watcher.Add(dir); err != nil {
			w.logger.Debug("skipping unwatchable dir", zap.String("dir", dir), zap.Error(err))
			merr.Add(err)
			continue
		}
		added++
	}
	if added == 0 {
		_ = watcher.Close()
		err := ErrNoWatchDirs
		if detail := merr.Err(); detail != nil {
			err = fmt.Errorf("%w: %v", ErrNoWatchDirs, detail)
		}
		return nil, nil, &OpError{Op: OpWatch, Err: err}
	}

	ch := make(chan UnitEvent, 16)

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() {
		_ = watcher.Close()
		close(ch)
	})

	cleanup := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}

	var mu sync.Mutex
	debouncers := make(map[string]*time.Timer)

	emit := func(unit, path string) {
		if sctx.IsStopping() {
			return
		}
		select {
		case ch <- UnitEvent{Unit: unit, Path: path}:
		case <-sctx.Stopping():
		}
	}

	sctx.Go(func(sctx *stopper.Context) error {
		sctx.Defer(func() {
			mu.Lock()
			for _, t := range debouncers {
				t.Stop()
			}
			mu.Unlock()
		})

		for !sctx.IsStopping() {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}

				unit := filepath.Base(event.Name)
				if !isUnitFile(unit) {
					continue
				}

				path := event.Name
				mu.Lock()
				if t, exists := debouncers[unit]; exists {
					t.Stop()
				}
				debouncers[unit] = time.AfterFunc(w.Debounce, func() {
					emit(unit, path)
				})
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if err != nil && !sctx.IsStopping() {
					select {
					case ch <- UnitEvent{Err: err}:
					case <-sctx.Stopping():
						return nil
					}
				}
			}
		}
		return nil
	})

	return ch, cleanup, nil
}

// isUnitFile reports whether a file name looks like a systemd unit file
func isUnitFile(name string) bool {
	for _, suffix := range unitSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
