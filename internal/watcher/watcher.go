// Package watcher notices when Claude Code appends to its logs so the report
// cache can be dropped before its TTL runs out.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultDebounce     = 2 * time.Second
)

type Options struct {
	PollInterval time.Duration
	// Debounce collects changes for this long before calling onChange once.
	Debounce time.Duration
	Log      zerolog.Logger
}

type Watcher struct {
	dirs         []string
	sizes        map[string]int64 // path -> size when last seen
	mu           sync.Mutex
	pollInterval time.Duration
	debounce     time.Duration
	onChange     func(paths []string)
	log          zerolog.Logger

	pending map[string]struct{}
	timer   *time.Timer
	stopped bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(dirs []string, opts Options, onChange func(paths []string)) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		dirs:         dirs,
		sizes:        make(map[string]int64),
		pollInterval: opts.PollInterval,
		debounce:     opts.Debounce,
		onChange:     onChange,
		log:          opts.Log,
		pending:      make(map[string]struct{}),
		stop:         make(chan struct{}),
	}
}

// Snapshot records the current size of every JSONL file so that only later
// writes count as changes. It returns the number of files found.
func (w *Watcher) Snapshot() int {
	files := w.scan()

	// Single lock acquisition to register all sizes
	w.mu.Lock()
	for path, size := range files {
		w.sizes[path] = size
	}
	w.mu.Unlock()

	return len(files)
}

// Start begins watching with fsnotify + polling fallback.
func (w *Watcher) Start() error {
	// Try fsnotify first
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn().Err(err).Msg("fsnotify unavailable, polling only")
	} else {
		for _, dir := range w.dirs {
			w.addTree(fsw, dir)
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer fsw.Close()
			for {
				select {
				case event, ok := <-fsw.Events:
					if !ok {
						return
					}
					w.handleEvent(fsw, event)
				case err, ok := <-fsw.Errors:
					if !ok {
						return
					}
					w.log.Warn().Err(err).Msg("fsnotify error")
				case <-w.stop:
					return
				}
			}
		}()
	}

	// Polling fallback (always runs as safety net)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.pollAll()
			case <-w.stop:
				return
			}
		}
	}()

	return nil
}

// Stop signals goroutines to exit and waits for them to finish. Pending
// changes are dropped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	close(w.stop)
	w.wg.Wait()
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			if err := fsw.Add(path); err != nil {
				w.log.Debug().Err(err).Str("dir", path).Msg("watch dir failed")
			}
		}
		return nil
	})
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		// New project directories need their own watch.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addTree(fsw, event.Name)
			return
		}
	}
	if filepath.Ext(event.Name) == ".jsonl" &&
		(event.Op&fsnotify.Write != 0 || event.Op&fsnotify.Create != 0) {
		w.checkFile(event.Name)
	}
}

func (w *Watcher) checkFile(path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if last, known := w.sizes[path]; known && last == info.Size() {
		return
	}
	w.sizes[path] = info.Size()
	w.markLocked(path)
}

func (w *Watcher) pollAll() {
	// Collect file info without holding the lock
	files := w.scan()

	// Single lock acquisition to check all sizes
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, size := range files {
		if last, known := w.sizes[path]; known && last == size {
			continue
		}
		w.sizes[path] = size
		w.markLocked(path)
	}
}

func (w *Watcher) scan() map[string]int64 {
	files := make(map[string]int64)
	for _, dir := range w.dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || filepath.Ext(path) != ".jsonl" {
				return nil
			}
			if info, err := d.Info(); err == nil {
				files[path] = info.Size()
			}
			return nil
		})
	}
	return files
}

// markLocked queues path and arms the debounce timer. w.mu must be held.
func (w *Watcher) markLocked(path string) {
	if w.stopped {
		return
	}
	w.pending[path] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.timer = nil
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	sort.Strings(paths)
	w.log.Debug().Strs("paths", paths).Msg("log files changed")
	if w.onChange != nil {
		w.onChange(paths)
	}
}
