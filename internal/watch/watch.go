// Package watch re-runs analytics when the case database changes on disk.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

// Watcher debounces filesystem changes to one target file into onChange
// callbacks. SQLite in WAL mode touches the -wal and -shm sidecars more often
// than the main file, so those count as changes too.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *log.Logger
	onChange func(context.Context)
}

// New builds a Watcher for the file at path.
func New(path string, cfg model.WatcherConfig, logger *log.Logger, onChange func(context.Context)) *Watcher {
	debounce := time.Duration(cfg.DebounceSec * float64(time.Second))
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{path: path, debounce: debounce, logger: logger, onChange: onChange}
}

func (w *Watcher) relevant(name string) bool {
	base := filepath.Base(w.path)
	got := filepath.Base(name)
	return got == base || strings.HasPrefix(got, base+"-")
}

// Run watches until ctx is cancelled. Change bursts inside the debounce
// window collapse into a single onChange call.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: SQLite's rename-and-replace moves
	// would silently detach a file-level watch.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Printf("[watch] watching %s (debounce %s)", w.path, w.debounce)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			if !pending {
				pending = true
			} else if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			pending = false
			w.logger.Printf("[watch] change settled, triggering run")
			w.onChange(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("[watch] error=%v", err)
		}
	}
}
