package canvas

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pulse-backend/application/diagram"
	"pulse-backend/application/ports"
	"pulse-backend/domain/org"
	"pulse-backend/pkg/observability"
)

var (
	// ErrUnmounted is returned by every call on an unmounted canvas.
	ErrUnmounted = errors.New("canvas unmounted")
	// ErrNoDiagram is returned by Mutate before any diagram was loaded.
	ErrNoDiagram = errors.New("canvas has no diagram loaded")
)

// Status is the lifecycle state of the displayed diagram.
type Status string

const (
	StatusEmpty        Status = "empty"
	StatusLoading      Status = "loading"
	StatusRendering    Status = "rendering"
	StatusReady        Status = "ready"
	StatusFetchFailed  Status = "fetch_failed"
	StatusRenderFailed Status = "render_failed"
)

// FetchFunc loads a fresh snapshot of a diagram.
type FetchFunc func(ctx context.Context, diagramType org.DiagramType) (*org.Snapshot, error)

// MutateFunc performs one CRUD call against a diagram.
type MutateFunc func(ctx context.Context, diagramType org.DiagramType) error

// Deps are the collaborators shared by every canvas.
type Deps struct {
	Fetch     FetchFunc
	Renderer  ports.Renderer
	Resolver  ports.ElementResolver
	Bridge    *Bridge
	Recorder  observability.Recorder
	Logger    *zap.Logger
	Direction string
}

// View is a point-in-time copy of a canvas.
type View struct {
	Token       string          `json:"token"`
	Callback    string          `json:"callback"`
	DiagramType org.DiagramType `json:"diagram_type,omitempty"`
	Status      Status          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Source      string          `json:"source,omitempty"`
	Markup      string          `json:"markup,omitempty"`
	Selected    string          `json:"selected_render_id,omitempty"`
	Detail      *Detail         `json:"detail,omitempty"`
	CanEdit     bool            `json:"can_edit"`
	Generation  uint64          `json:"generation"`
}

// request is one in-flight fetch or render. Its completion is applied only
// while it is still the newest request for the same diagram type.
type request struct {
	gen         uint64
	diagramType org.DiagramType
	ctx         context.Context
	cancel      context.CancelFunc
	settled     chan struct{}
}

// Canvas is one viewer's interactive diagram. All state below the loop
// marker is owned by the run goroutine; public methods post closures to it.
type Canvas struct {
	token    string
	callback string
	viewer   org.Viewer
	deps     Deps

	ctx        context.Context
	cancel     context.CancelFunc
	inbox      chan func()
	stopped    chan struct{}
	unmount    sync.Once
	lastActive atomic.Int64

	// loop-owned
	diagramType org.DiagramType
	generation  uint64
	inflight    *request
	status      Status
	errMsg      string
	snapshot    *org.Snapshot
	compiled    *diagram.Compiled
	markup      ports.Markup
	selection   *SelectionMachine
	detail      *DetailPanel
}

// New mounts a canvas: it registers the click callback and starts the loop.
func New(token string, viewer org.Viewer, deps Deps) *Canvas {
	if deps.Recorder == nil {
		deps.Recorder = observability.NopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Canvas{
		token:   token,
		viewer:  viewer,
		deps:    deps,
		ctx:     ctx,
		cancel:  cancel,
		inbox:   make(chan func(), 16),
		stopped: make(chan struct{}),
		status:  StatusEmpty,
		detail:  NewDetailPanel(viewer),
	}
	c.selection = NewSelectionMachine(deps.Resolver, c.detail)
	c.callback = deps.Bridge.Register(token, viewer.UserID, c.Click)
	c.touch()

	go c.run()
	return c
}

func (c *Canvas) Token() string { return c.token }
func (c *Canvas) Callback() string { return c.callback }
func (c *Canvas) Viewer() org.Viewer { return c.viewer }

// IdleSince returns the time of the last public call.
func (c *Canvas) IdleSince() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Canvas) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

func (c *Canvas) run() {
	defer close(c.stopped)
	for {
		select {
		case fn := <-c.inbox:
			fn()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Canvas) post(fn func()) bool {
	select {
	case c.inbox <- fn:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// call runs fn on the loop and waits for it to finish.
func (c *Canvas) call(ctx context.Context, fn func()) error {
	c.touch()
	done := make(chan struct{})
	if !c.post(func() { fn(); close(done) }) {
		return ErrUnmounted
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrUnmounted
	}
}

// Load switches the canvas to diagramType and fetches it. The returned
// channel closes once that request has settled (applied, failed or superseded).
func (c *Canvas) Load(ctx context.Context, diagramType org.DiagramType) (<-chan struct{}, error) {
	return c.start(ctx, func() <-chan struct{} { return c.startLoad(diagramType) })
}

// Refresh refetches the current diagram.
func (c *Canvas) Refresh(ctx context.Context) (<-chan struct{}, error) {
	return c.start(ctx, c.startRefresh)
}

// Rerender renders the current snapshot again without refetching; the
// selection is kept.
func (c *Canvas) Rerender(ctx context.Context) (<-chan struct{}, error) {
	return c.start(ctx, c.startRerender)
}

// start runs fn on the loop and hands back its settled channel. The result
// travels over a buffered channel because an abandoned call may still run fn.
func (c *Canvas) start(ctx context.Context, fn func() <-chan struct{}) (<-chan struct{}, error) {
	result := make(chan (<-chan struct{}), 1)
	if err := c.call(ctx, func() { result <- fn() }); err != nil {
		return nil, err
	}
	return <-result, nil
}

// Await blocks until settled closes.
func (c *Canvas) Await(ctx context.Context, settled <-chan struct{}) error {
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrUnmounted
	}
}

// Click is the canvas end of the click bridge.
func (c *Canvas) Click(ctx context.Context, renderID string) ClickOutcome {
	result := make(chan ClickOutcome, 1)
	if err := c.call(ctx, func() { result <- c.selection.Click(renderID) }); err != nil {
		return ClickUnbound
	}
	outcome := <-result
	c.deps.Recorder.IncClick(string(outcome))
	return outcome
}

// CloseDetail closes the detail panel and clears the highlight.
func (c *Canvas) CloseDetail(ctx context.Context) error {
	return c.call(ctx, func() { c.selection.Close() })
}

// Mutate runs a CRUD call against the loaded diagram and refetches on
// success. On failure the snapshot is left untouched and the error returned.
func (c *Canvas) Mutate(ctx context.Context, fn MutateFunc) (<-chan struct{}, error) {
	current := make(chan org.DiagramType, 1)
	if err := c.call(ctx, func() { current <- c.diagramType }); err != nil {
		return nil, err
	}
	diagramType := <-current
	if diagramType == "" {
		return nil, ErrNoDiagram
	}
	if err := fn(ctx, diagramType); err != nil {
		return nil, err
	}
	return c.Refresh(ctx)
}

// RefreshIf refetches when the canvas currently shows diagramType.
// It does not wait for the loop.
func (c *Canvas) RefreshIf(diagramType org.DiagramType) bool {
	return c.post(func() {
		if c.diagramType == diagramType {
			c.startRefresh()
		}
	})
}

// View returns a copy of the current state.
func (c *Canvas) View(ctx context.Context) (View, error) {
	result := make(chan View, 1)
	if err := c.call(ctx, func() { result <- c.view() }); err != nil {
		return View{}, err
	}
	return <-result, nil
}

// Unmount cancels in-flight work, removes the click callback and stops the
// loop. Completions arriving afterwards are dropped.
func (c *Canvas) Unmount() {
	c.unmount.Do(func() {
		c.deps.Bridge.Deregister(c.callback)
		c.cancel()
		<-c.stopped
	})
}

// Done is closed once the canvas is unmounted.
func (c *Canvas) Done() <-chan struct{} {
	return c.stopped
}

// Everything below runs on the loop.

func (c *Canvas) startLoad(diagramType org.DiagramType) <-chan struct{} {
	if diagramType != c.diagramType {
		c.diagramType = diagramType
		c.replaceSnapshot(nil)
	}
	return c.fetch()
}

func (c *Canvas) startRefresh() <-chan struct{} {
	if c.diagramType == "" {
		return closed()
	}
	return c.fetch()
}

func (c *Canvas) startRerender() <-chan struct{} {
	if c.compiled == nil || c.status == StatusLoading {
		return closed()
	}
	req := c.begin()
	c.render(req)
	return req.settled
}

func (c *Canvas) begin() *request {
	if c.inflight != nil {
		c.inflight.cancel()
	}
	c.generation++
	ctx, cancel := context.WithCancel(c.ctx)
	req := &request{
		gen:         c.generation,
		diagramType: c.diagramType,
		ctx:         ctx,
		cancel:      cancel,
		settled:     make(chan struct{}),
	}
	c.inflight = req
	return req
}

func (c *Canvas) isCurrent(req *request) bool {
	return req.gen == c.generation && req.diagramType == c.diagramType
}

func (c *Canvas) finish(req *request) {
	req.cancel()
	close(req.settled)
	if c.inflight == req {
		c.inflight = nil
	}
}

func (c *Canvas) discard(req *request, stage string) {
	c.deps.Logger.Debug("Discarding stale completion",
		zap.String("token", c.token),
		zap.String("stage", stage),
		zap.Uint64("generation", req.gen),
		zap.Uint64("current_generation", c.generation),
		zap.String("diagram_type", string(req.diagramType)),
	)
	c.deps.Recorder.IncStaleCompletion(stage)
	c.finish(req)
}

func (c *Canvas) fetch() <-chan struct{} {
	req := c.begin()
	c.status = StatusLoading
	c.errMsg = ""

	fetchFn := c.deps.Fetch
	recorder := c.deps.Recorder
	go func() {
		start := time.Now()
		snap, err := fetchFn(req.ctx, req.diagramType)
		recorder.ObserveFetch(string(req.diagramType), time.Since(start), err)
		c.post(func() { c.onFetched(req, snap, err) })
	}()
	return req.settled
}

func (c *Canvas) onFetched(req *request, snap *org.Snapshot, err error) {
	if !c.isCurrent(req) {
		c.discard(req, "fetch")
		return
	}
	if err == nil && snap == nil {
		err = errors.New("diagram fetch returned no snapshot")
	}
	if err != nil {
		c.replaceSnapshot(nil)
		c.status = StatusFetchFailed
		c.errMsg = err.Error()
		c.deps.Logger.Warn("Diagram fetch failed",
			zap.String("token", c.token),
			zap.String("diagram_type", string(req.diagramType)),
			zap.Error(err),
		)
		c.finish(req)
		return
	}

	c.replaceSnapshot(snap)
	c.compile()
	c.render(req)
}

// replaceSnapshot drops everything derived from the previous snapshot.
// The selection goes to Idle even if the same node exists in snap.
func (c *Canvas) replaceSnapshot(snap *org.Snapshot) {
	c.selection.Reset()
	c.detail.SetSnapshot(snap)
	c.snapshot = snap
	c.compiled = nil
	c.markup = nil
	if snap == nil {
		c.status = StatusEmpty
	}
}

func (c *Canvas) compile() {
	start := time.Now()
	view := org.RedactSnapshot(c.snapshot, c.viewer.Clearance)
	c.compiled = diagram.Compile(view, diagram.CompileOptions{
		Direction:     c.deps.Direction,
		ClickCallback: c.callback,
	})
	c.deps.Recorder.ObserveCompile(string(c.diagramType), len(view.Nodes), len(c.compiled.DroppedEdges), time.Since(start))
	c.selection.Attach(c.compiled.RenderIDs)
}

func (c *Canvas) render(req *request) {
	c.status = StatusRendering
	source := c.compiled.Source
	renderer := c.deps.Renderer
	go func() {
		markup, err := renderer.Render(req.ctx, source)
		c.post(func() { c.onRendered(req, markup, err) })
	}()
}

func (c *Canvas) onRendered(req *request, markup ports.Markup, err error) {
	if !c.isCurrent(req) {
		c.discard(req, "render")
		return
	}
	defer c.finish(req)

	if err != nil {
		// No partial graph: the selection and detail panel go with the markup.
		c.selection.Close()
		c.markup = nil
		c.selection.Rebind(nil)
		c.status = StatusRenderFailed
		c.errMsg = err.Error()
		c.deps.Logger.Warn("Diagram render failed",
			zap.String("token", c.token),
			zap.String("diagram_type", string(req.diagramType)),
			zap.Error(err),
		)
		return
	}

	c.markup = markup
	c.selection.Rebind(markup)
	c.status = StatusReady
	c.errMsg = ""
}

func (c *Canvas) view() View {
	v := View{
		Token:       c.token,
		Callback:    c.callback,
		DiagramType: c.diagramType,
		Status:      c.status,
		Error:       c.errMsg,
		Detail:      c.detail.Current(),
		CanEdit:     c.viewer.CanEdit(),
		Generation:  c.generation,
	}
	if c.markup != nil {
		v.Markup = c.markup.String()
	}
	if c.status == StatusRenderFailed && c.compiled != nil {
		v.Source = c.compiled.Source
	}
	v.Selected, _ = c.selection.Selected()
	return v
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
