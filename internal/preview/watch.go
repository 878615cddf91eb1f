package preview

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/study-groups/mdpublish/internal/logging"
)

// DefaultDebounce coalesces the bursts of events editors emit on save.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports changes to a single file.
//
// The parent directory is watched rather than the file: editors that save
// through a rename replace the inode, which drops a watch on the file.
type Watcher struct {
	path     string
	debounce time.Duration
	log      logging.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a change is reported.
// Panics if d is negative.
func WithDebounce(d time.Duration) WatcherOption {
	if d < 0 {
		panic(fmt.Sprintf("preview: negative debounce %v", d))
	}
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l logging.Logger) WatcherOption {
	return func(w *Watcher) { w.log = logging.OrNop(l) }
}

// NewWatcher creates a Watcher for path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	w := &Watcher{path: abs, debounce: DefaultDebounce, log: logging.Nop()}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run calls onChange after each debounced burst of changes until ctx is
// done. onChange runs on the Run goroutine, so calls never overlap; changes
// made while it runs collapse into one further call.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}

	changed := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	trigger := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				trigger()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", "path", w.path, "error", err)
		case <-changed:
			onChange()
		}
	}
}

// relevant reports whether ev touches the watched file's content.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
