package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
	"pulse-backend/domain/org"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses the burst of events an editor save produces
const DefaultDebounce = 100 * time.Millisecond

// Watcher publishes DiagramReplaced when a diagram file is changed by
// anything other than the store itself.
type Watcher struct {
	store     *Store
	watcher   *fsnotify.Watcher
	publisher ports.EventPublisher
	logger    *zap.Logger
	debounce  time.Duration

	mu     sync.Mutex
	timers map[org.DiagramType]*time.Timer

	stopCh chan struct{}
	done   chan struct{}
}

// NewWatcher creates a watcher over the store's directory
func NewWatcher(store *Store, publisher ports.EventPublisher, logger *zap.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(store.Dir()); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch data dir: %w", err)
	}

	return &Watcher{
		store:     store,
		watcher:   watcher,
		publisher: publisher,
		logger:    logger,
		debounce:  DefaultDebounce,
		timers:    make(map[org.DiagramType]*time.Timer),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching for diagram file changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Diagram file watcher started", zap.String("dir", w.store.Dir()))
}

// Stop stops watching and waits for the loop to exit
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	<-w.done

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()
	w.logger.Info("Diagram file watcher stopped")
}

// diagramTypeOf maps a file name to its diagram type
func diagramTypeOf(name string) (org.DiagramType, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".json") {
		return "", false
	}
	dt, err := org.ParseDiagramType(strings.TrimSuffix(base, ".json"))
	if err != nil {
		return "", false
	}
	return dt, true
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			dt, ok := diagramTypeOf(event.Name)
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.schedule(dt)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(dt org.DiagramType) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[dt]; ok {
		t.Stop()
	}
	w.timers[dt] = time.AfterFunc(w.debounce, func() { w.handleChange(dt) })
}

func (w *Watcher) handleChange(dt org.DiagramType) {
	data, err := os.ReadFile(w.store.path(dt))
	if err != nil && !os.IsNotExist(err) {
		w.logger.Warn("Failed to read changed diagram file", zap.String("diagram_type", string(dt)), zap.Error(err))
		return
	}
	if err == nil && w.store.ownContent(dt, data) {
		return
	}

	w.logger.Info("Diagram file changed on disk", zap.String("diagram_type", string(dt)))
	if err := w.publisher.Publish(context.Background(), events.NewDiagramReplaced(dt)); err != nil {
		w.logger.Warn("Failed to publish diagram replacement", zap.String("diagram_type", string(dt)), zap.Error(err))
	}
}
