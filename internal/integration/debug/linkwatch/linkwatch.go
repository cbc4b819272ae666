// Package linkwatch keeps a script regex current while the symlinks it was
// built from change.
//
// A script regex captures the real location of a path at build time. When
// a symlink is retargeted (a package manager relinking a workspace, say),
// the regex no longer covers the new target. The watcher observes the
// directory of the path and of its current target, rebuilds the regex
// after a burst of changes settles, and publishes the new pattern only when
// its text differs from the previous one.
package linkwatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/scriptmatch/internal/integration/debug/paths"
	"github.com/dshills/scriptmatch/internal/integration/debug/scriptregex"
)

// DefaultDebounce is the quiet period before a rebuild.
const DefaultDebounce = 100 * time.Millisecond

// Common errors returned by the watcher.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("watched directory does not exist")
)

// Update is published when the script regex changes.
type Update struct {
	Pattern  string
	Previous string
}

// Option configures a Watcher.
type Option func(*options)

type options struct {
	debounce   time.Duration
	bufferSize int
}

// WithDebounce sets the quiet period before a rebuild.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithBufferSize sets the capacity of the update and error channels.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// Watcher rebuilds a script regex when its path or symlink target changes.
//
// Watcher is safe for concurrent use.
type Watcher struct {
	builder  *scriptregex.Builder
	input    string
	filePath string
	debounce time.Duration

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	current string
	dirs    map[string]bool
	closed  bool

	updates chan Update
	errors  chan error
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New builds the script regex for pathOrURL and starts watching it.
func New(builder *scriptregex.Builder, pathOrURL string, opts ...Option) (*Watcher, error) {
	o := options{debounce: DefaultDebounce, bufferSize: 16}
	for _, opt := range opts {
		opt(&o)
	}
	if o.debounce <= 0 {
		o.debounce = DefaultDebounce
	}
	if o.bufferSize <= 0 {
		o.bufferSize = 16
	}
	if builder == nil {
		builder = scriptregex.NewBuilder()
	}

	filePath, err := paths.ToFilePath(pathOrURL)
	if err != nil {
		return nil, err
	}

	current, err := builder.Build(pathOrURL)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		builder:  builder,
		input:    pathOrURL,
		filePath: filePath,
		debounce: o.debounce,
		fsw:      fsw,
		current:  current,
		dirs:     make(map[string]bool),
		updates:  make(chan Update, o.bufferSize),
		errors:   make(chan error, o.bufferSize),
		closeCh:  make(chan struct{}),
	}

	if err := w.watchDir(filepath.Dir(filePath)); err != nil {
		fsw.Close()
		return nil, err
	}
	w.watchTarget()

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Pattern returns the current script regex.
func (w *Watcher) Pattern() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Updates returns the channel of pattern changes.
func (w *Watcher) Updates() <-chan Update {
	return w.updates
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Rebuild rebuilds the script regex immediately. It reports the update and
// whether the pattern changed.
func (w *Watcher) Rebuild() (Update, bool, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return Update{}, false, ErrWatcherClosed
	}
	w.mu.Unlock()

	next, err := w.builder.Build(w.input)
	if err != nil {
		return Update{}, false, err
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	w.mu.Unlock()

	w.watchTarget()

	if next == prev {
		return Update{Pattern: next, Previous: prev}, false, nil
	}
	return Update{Pattern: next, Previous: prev}, true, nil
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()

	close(w.updates)
	close(w.errors)
	return err
}

// WatchedDirs returns the directories being observed.
func (w *Watcher) WatchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.dirs))
	for d := range w.dirs {
		dirs = append(dirs, d)
	}
	return dirs
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sendError(err)

		case <-timerC:
			timerC = nil
			update, changed, err := w.Rebuild()
			if err != nil {
				if !errors.Is(err, ErrWatcherClosed) {
					w.sendError(err)
				}
				continue
			}
			if changed {
				select {
				case w.updates <- update:
				case <-w.closeCh:
					return
				}
			}
		}
	}
}

// watchTarget adds the directory of the current real path, if any.
func (w *Watcher) watchTarget() {
	if !w.builder.ResolveSymlinks {
		return
	}
	realPath, ok := w.builder.RealPath(w.input)
	if !ok {
		return
	}
	if err := w.watchDir(filepath.Dir(realPath)); err != nil && !errors.Is(err, ErrWatcherClosed) {
		w.sendError(err)
	}
}

func (w *Watcher) watchDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.dirs[dir] {
		return nil
	}

	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrPathNotExist, dir)
		}
		return err
	}
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.dirs[dir] = true
	return nil
}

func (w *Watcher) sendError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.errors <- err:
	default:
		// Drop if the buffer is full.
	}
}
