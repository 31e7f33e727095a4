package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcher turns filesystem activity on the database files into remote
// change checks.
type watcher struct {
	db     *DB
	fsw    *fsnotify.Watcher
	prefix string
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newWatcher(db *DB) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(db.path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(db.path), err)
	}
	return &watcher{
		db:     db,
		fsw:    fsw,
		prefix: filepath.Base(db.path),
		stopCh: make(chan struct{}),
	}, nil
}

func (w *watcher) start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
}

func (w *watcher) stop() {
	close(w.stopCh)
	_ = w.fsw.Close()
	w.wg.Wait()
}

// relevant matches the database file and its -wal and -shm companions.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return strings.HasPrefix(filepath.Base(ev.Name), w.prefix)
}

func (w *watcher) loop() {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C
	defer debounceTimer.Stop()

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			debounceTimer.Reset(w.db.watchDebounce)

		case <-debounceTimer.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := w.db.CheckRemote(ctx); err != nil {
				w.db.logger.Warn("remote change check failed", "error", err.Error())
			}
			cancel()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.db.logger.Warn("store watcher error", "error", err.Error())
		}
	}
}
