package realm

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/httpgate/internal/logger"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 100 * time.Millisecond

type watcher struct {
	fs     *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (w *watcher) close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		<-w.done
		err = w.fs.Close()
	})
	return err
}

// Watch reloads the realm whenever its file is written, created or renamed
// over. The directory is watched rather than the file so that atomic
// replace-by-rename is seen. onReload, if non-nil, runs after each
// successful reload. Watching stops on ctx cancellation or Close.
func (r *Realm) Watch(ctx context.Context, onReload func()) error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &watcher{fs: fs, cancel: cancel, done: make(chan struct{})}

	r.watchMu.Lock()
	prev := r.watch
	r.watch = w
	r.watchMu.Unlock()
	if prev != nil {
		_ = prev.close()
	}

	go r.watchLoop(ctx, w, filepath.Base(r.path), onReload)

	logger.Info("Watching realm file for changes", logger.File(r.path))
	return nil
}

func (r *Realm) watchLoop(ctx context.Context, w *watcher, name string, onReload func()) {
	defer close(w.done)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				if ctx.Err() != nil {
					return
				}
				if err := r.Reload(); err != nil {
					logger.Warn("Failed to reload realm file, keeping previous credentials",
						logger.File(r.path), logger.Err(err))
					return
				}
				if onReload != nil {
					onReload()
				}
			})

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("Realm file watcher error", logger.File(r.path), logger.Err(err))
		}
	}
}
