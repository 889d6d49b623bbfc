package server

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"SpiritTalk/internal/dialogue"
)

// GraphWatcher reloads a graph file when it changes on disk.
type GraphWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	onLoad   func(*dialogue.Graph)
	onResult func(ok bool)

	mu    sync.Mutex
	timer *time.Timer
}

// NewGraphWatcher watches the directory holding path, so editors that
// replace the file by rename are still seen.
func NewGraphWatcher(path string, debounce time.Duration, onLoad func(*dialogue.Graph)) (*GraphWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	clean := filepath.Clean(path)
	if err := w.Add(filepath.Dir(clean)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %q: %w", clean, err)
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &GraphWatcher{path: clean, debounce: debounce, watcher: w, onLoad: onLoad}, nil
}

// Run handles file events until ctx is done, then closes the watcher.
func (gw *GraphWatcher) Run(ctx context.Context) {
	defer gw.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			gw.mu.Lock()
			if gw.timer != nil {
				gw.timer.Stop()
			}
			gw.mu.Unlock()
			return
		case ev, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != gw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			gw.schedule()
		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", gw.path).Msg("graph watcher")
		}
	}
}

func (gw *GraphWatcher) schedule() {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.timer != nil {
		gw.timer.Stop()
	}
	gw.timer = time.AfterFunc(gw.debounce, gw.Reload)
}

// Reload loads the file now. A graph that fails to load is logged and the
// previous one stays in use.
func (gw *GraphWatcher) Reload() {
	g, err := dialogue.Load(gw.path, dialogue.LoadOptions{})
	if gw.onResult != nil {
		gw.onResult(err == nil)
	}
	if err != nil {
		log.Error().Err(err).Msg("graph reload failed, keeping previous graph")
		return
	}
	log.Info().Str("path", gw.path).Int("conversations", len(g.Conversations)).Msg("graph reloaded")
	gw.onLoad(g)
}
