package canvas

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
	"pulse-backend/domain/org"
)

// Registry tracks mounted canvases and refreshes them when the diagram they
// show changes under them.
type Registry struct {
	deps        Deps
	idleTimeout time.Duration

	mu       sync.RWMutex
	canvases map[string]*Canvas
}

var _ ports.EventHandler = (*Registry)(nil)

// NewRegistry creates a registry. A zero idleTimeout disables sweeping.
func NewRegistry(deps Deps, idleTimeout time.Duration) *Registry {
	if deps.Bridge == nil {
		deps.Bridge = NewBridge()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Registry{
		deps:        deps,
		idleTimeout: idleTimeout,
		canvases:    make(map[string]*Canvas),
	}
}

// Bridge returns the click bridge shared by the registry's canvases.
func (r *Registry) Bridge() *Bridge {
	return r.deps.Bridge
}

// Mount creates a canvas for viewer under a fresh session token.
func (r *Registry) Mount(viewer org.Viewer) *Canvas {
	c := New(uuid.New().String(), viewer, r.deps)

	r.mu.Lock()
	r.canvases[c.Token()] = c
	n := len(r.canvases)
	r.mu.Unlock()

	r.recordActive(n)
	r.deps.Logger.Debug("Canvas mounted",
		zap.String("token", c.Token()),
		zap.String("user_id", viewer.UserID),
	)
	return c
}

// Get returns the canvas for token if it belongs to userID.
func (r *Registry) Get(token, userID string) (*Canvas, bool) {
	r.mu.RLock()
	c, ok := r.canvases[token]
	r.mu.RUnlock()
	if !ok || c.Viewer().UserID != userID {
		return nil, false
	}
	return c, true
}

// Unmount removes and stops a canvas. It reports whether one was found.
func (r *Registry) Unmount(token, userID string) bool {
	r.mu.Lock()
	c, ok := r.canvases[token]
	if ok && c.Viewer().UserID == userID {
		delete(r.canvases, token)
	} else {
		ok = false
	}
	n := len(r.canvases)
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.Unmount()
	r.recordActive(n)
	return true
}

// Len returns the number of mounted canvases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.canvases)
}

// Handle refreshes every canvas showing the event's diagram type.
func (r *Registry) Handle(ctx context.Context, event events.DomainEvent) error {
	diagramType := event.GetDiagramType()

	r.mu.RLock()
	targets := make([]*Canvas, 0, len(r.canvases))
	for _, c := range r.canvases {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		c.RefreshIf(diagramType)
	}
	return nil
}

// CanHandle implements ports.EventHandler. Every mutation event invalidates.
func (r *Registry) CanHandle(eventType string) bool {
	switch eventType {
	case events.TypeNodeCreated, events.TypeNodeUpdated, events.TypeNodeDeleted,
		events.TypeEdgeCreated, events.TypeEdgeDeleted, events.TypeDiagramReplaced:
		return true
	}
	return false
}

// SweepIdle unmounts canvases idle for longer than the idle timeout.
func (r *Registry) SweepIdle(now time.Time) int {
	if r.idleTimeout <= 0 {
		return 0
	}

	var idle []*Canvas
	r.mu.Lock()
	for token, c := range r.canvases {
		if now.Sub(c.IdleSince()) > r.idleTimeout {
			idle = append(idle, c)
			delete(r.canvases, token)
		}
	}
	n := len(r.canvases)
	r.mu.Unlock()

	for _, c := range idle {
		c.Unmount()
	}
	if len(idle) > 0 {
		r.recordActive(n)
		r.deps.Logger.Info("Unmounted idle canvases", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps idle canvases until ctx is done, then unmounts everything.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTimeout / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case now := <-ticker.C:
			r.SweepIdle(now)
		}
	}
}

// Close unmounts every canvas.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.canvases
	r.canvases = make(map[string]*Canvas)
	r.mu.Unlock()

	for _, c := range all {
		c.Unmount()
	}
	r.recordActive(0)
}

func (r *Registry) recordActive(n int) {
	if r.deps.Recorder != nil {
		r.deps.Recorder.SetActiveCanvases(n)
	}
}
