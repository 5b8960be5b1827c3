// Package watcher reports changes to the document file made outside the
// server, such as a hand edit or a restored backup.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/assetmanager/core/internal/infrastructure/logger"
)

const debounceInterval = 100 * time.Millisecond

// Watcher watches a single file through its parent directory, so atomic
// replace-by-rename is seen as well as in-place writes.
type Watcher struct {
	fw      *fsnotify.Watcher
	logger  *logger.Logger
	done    chan struct{}
	stopped bool
	mu      sync.Mutex
}

// New creates a new file watcher
func New(logger *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fw:     fw,
		logger: logger.WithComponent("watcher"),
		done:   make(chan struct{}),
	}, nil
}

// Watch starts monitoring filePath. onChange is called with the absolute
// path once a burst of writes, creates, renames or removals of that file
// has been quiet for debounceInterval.
func (w *Watcher) Watch(filePath string, onChange func(path string)) error {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absPath)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := w.fw.Add(dir); err != nil {
		return err
	}

	// One callback per burst, after it has been quiet for debounceInterval
	var timer *time.Timer
	fire := func() {
		select {
		case <-w.done:
		default:
			onChange(absPath)
		}
	}

	go func() {
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}

				if timer == nil {
					timer = time.AfterFunc(debounceInterval, fire)
				} else {
					timer.Reset(debounceInterval)
				}

			case err, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				w.logger.Warnw("File watcher error", "error", err)

			case <-w.done:
				return
			}
		}
	}()

	w.logger.Infow("Watching document file", "path", absPath)
	return nil
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}
