package queries

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
	"pulse-backend/domain/org"
	"pulse-backend/pkg/observability"

	"go.uber.org/zap"
)

// DefaultSnapshotTTL bounds how long a cached snapshot survives without an
// invalidating event, in seconds.
const DefaultSnapshotTTL = 30

// SnapshotReader loads diagram snapshots through a cache. It subscribes to
// the event bus and drops the cached snapshot of a diagram whenever that
// diagram changes.
type SnapshotReader struct {
	repo     ports.DiagramRepository
	cache    ports.Cache
	ttl      int
	tracer   *observability.Tracer
	recorder observability.Recorder
	logger   *zap.Logger

	// generations counts invalidations per diagram type; a load only
	// caches its result when no invalidation happened while it ran.
	mu          sync.Mutex
	generations map[org.DiagramType]uint64
}

// NewSnapshotReader creates a new snapshot reader. cache may be nil.
func NewSnapshotReader(
	repo ports.DiagramRepository,
	cache ports.Cache,
	tracer *observability.Tracer,
	recorder observability.Recorder,
	logger *zap.Logger,
) *SnapshotReader {
	if recorder == nil {
		recorder = observability.NopRecorder{}
	}
	return &SnapshotReader{
		repo:        repo,
		cache:       cache,
		ttl:         DefaultSnapshotTTL,
		tracer:      tracer,
		recorder:    recorder,
		logger:      logger,
		generations: make(map[org.DiagramType]uint64),
	}
}

func (r *SnapshotReader) generation(diagramType org.DiagramType) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generations[diagramType]
}

func snapshotKey(diagramType org.DiagramType) string {
	return "snapshot:" + string(diagramType)
}

// Load returns the current snapshot of a diagram. Snapshots are shared
// between callers and must not be modified.
func (r *SnapshotReader) Load(ctx context.Context, diagramType org.DiagramType) (*org.Snapshot, error) {
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, snapshotKey(diagramType)); ok {
			if snap, ok := cached.(*org.Snapshot); ok {
				return snap, nil
			}
		}
	}

	generation := r.generation(diagramType)
	start := time.Now()
	var snap *org.Snapshot
	load := func(ctx context.Context) error {
		var err error
		snap, err = r.repo.GetDiagram(ctx, diagramType)
		return err
	}

	err := r.tracer.Span(ctx, "fetch_diagram", load, "diagram_type", string(diagramType))
	r.recorder.ObserveFetch(string(diagramType), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to load diagram %s: %w", diagramType, err)
	}

	if r.cache != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.generations[diagramType] != generation {
			r.logger.Debug("Snapshot invalidated during load; not caching",
				zap.String("diagram_type", string(diagramType)),
			)
			return snap, nil
		}
		if err := r.cache.Set(ctx, snapshotKey(diagramType), snap, r.ttl); err != nil {
			r.logger.Warn("Failed to cache snapshot",
				zap.String("diagram_type", string(diagramType)),
				zap.Error(err),
			)
		}
	}
	return snap, nil
}

// Handle drops the cached snapshot of the diagram an event belongs to
func (r *SnapshotReader) Handle(ctx context.Context, event events.DomainEvent) error {
	return r.Invalidate(ctx, event.GetDiagramType())
}

// Invalidate drops the cached snapshot of diagramType and keeps any load
// still in flight for it from caching its result.
func (r *SnapshotReader) Invalidate(ctx context.Context, diagramType org.DiagramType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations[diagramType]++
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, snapshotKey(diagramType))
}

// CanHandle reports whether the event invalidates a snapshot
func (r *SnapshotReader) CanHandle(eventType string) bool {
	switch eventType {
	case events.TypeNodeCreated, events.TypeNodeUpdated, events.TypeNodeDeleted,
		events.TypeEdgeCreated, events.TypeEdgeDeleted, events.TypeDiagramReplaced:
		return true
	}
	return false
}
