package canvas

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"pulse-backend/application/ports"
	"pulse-backend/domain/org"
)

// opLog records class mutations in the order they happen.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	l.ops = append(l.ops, op)
	l.mu.Unlock()
}

func (l *opLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.ops
	l.ops = nil
	return out
}

type fakeElement struct {
	id      string
	classes map[string]bool
	log     *opLog
}

func (e *fakeElement) ID() string { return e.id }
func (e *fakeElement) HasClass(class string) bool { return e.classes[class] }

func (e *fakeElement) AddClass(class string) {
	e.classes[class] = true
	e.log.add("add " + class + " " + e.id)
}

func (e *fakeElement) RemoveClass(class string) {
	delete(e.classes, class)
	e.log.add("remove " + class + " " + e.id)
}

// fakeMarkup mimics engine output: one flowchart-<rid>-0 element per node
// statement of the source.
type fakeMarkup struct {
	source   string
	order    []string
	elements map[string]*fakeElement
}

var nodeStatement = regexp.MustCompile(`(?m)^\s+(n\d+)\["`)

func newFakeMarkup(source string, log *opLog) *fakeMarkup {
	m := &fakeMarkup{source: source, elements: map[string]*fakeElement{}}
	for _, match := range nodeStatement.FindAllStringSubmatch(source, -1) {
		id := "flowchart-" + match[1] + "-0"
		m.order = append(m.order, id)
		m.elements[id] = &fakeElement{id: id, classes: map[string]bool{}, log: log}
	}
	return m
}

func (m *fakeMarkup) ElementByID(id string) (ports.Element, bool) {
	el, ok := m.elements[id]
	if !ok {
		return nil, false
	}
	return el, true
}

func (m *fakeMarkup) IDs() []string { return append([]string(nil), m.order...) }

func (m *fakeMarkup) String() string {
	var b strings.Builder
	b.WriteString(m.source)
	for _, id := range m.order {
		var classes []string
		for c := range m.elements[id].classes {
			classes = append(classes, c)
		}
		sort.Strings(classes)
		fmt.Fprintf(&b, "%s:%s\n", id, strings.Join(classes, ","))
	}
	return b.String()
}

func (m *fakeMarkup) classesOf(rid string) map[string]bool {
	el, ok := m.elements["flowchart-"+rid+"-0"]
	if !ok {
		return nil
	}
	return el.classes
}

// fakeRenderer renders through newFakeMarkup. Sources containing a gated
// marker block until the gate is released.
type fakeRenderer struct {
	log *opLog

	mu    sync.Mutex
	gates map[string]chan struct{}
	err   error
	calls int
	last  *fakeMarkup
}

func newFakeRenderer(log *opLog) *fakeRenderer {
	return &fakeRenderer{log: log, gates: map[string]chan struct{}{}}
}

func (r *fakeRenderer) gate(marker string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.gates[marker] = ch
	return ch
}

func (r *fakeRenderer) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *fakeRenderer) Render(ctx context.Context, source string) (ports.Markup, error) {
	r.mu.Lock()
	r.calls++
	var gate chan struct{}
	for marker, ch := range r.gates {
		if strings.Contains(source, marker) {
			gate = ch
		}
	}
	err := r.err
	r.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	m := newFakeMarkup(source, r.log)
	r.mu.Lock()
	r.last = m
	r.mu.Unlock()
	return m, nil
}

func (r *fakeRenderer) lastMarkup() *fakeMarkup {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *fakeRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeSource serves snapshots per diagram type. A gated type blocks its next
// fetch until released and ignores cancellation, like a slow backend.
type fakeSource struct {
	mu        sync.Mutex
	snapshots map[org.DiagramType]*org.Snapshot
	gates     map[org.DiagramType]chan struct{}
	err       error
	calls     int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		snapshots: map[org.DiagramType]*org.Snapshot{},
		gates:     map[org.DiagramType]chan struct{}{},
	}
}

func (s *fakeSource) set(snap *org.Snapshot) {
	s.mu.Lock()
	s.snapshots[snap.DiagramType] = snap
	s.mu.Unlock()
}

func (s *fakeSource) gate(dt org.DiagramType) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.gates[dt] = ch
	return ch
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSource) Fetch(ctx context.Context, dt org.DiagramType) (*org.Snapshot, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gates[dt]
	delete(s.gates, dt)
	snap := s.snapshots[dt]
	err := s.err
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errors.New("diagram not found")
	}
	return snap, nil
}

// orgChart is A(public) -> B(admin) -> C(public) plus A -> C.
func orgChart() *org.Snapshot {
	return org.NewSnapshot(org.DiagramOrgChart,
		[]org.Node{
			{ID: "a", Label: "CEO", PermissionLevel: org.PermissionPublic},
			{ID: "b", Label: "Board", PermissionLevel: org.PermissionAdmin},
			{ID: "c", Label: "Engineering", PermissionLevel: org.PermissionPublic},
		},
		[]org.Edge{
			{ID: "e1", SourceID: "a", TargetID: "b", Label: "escalates"},
			{ID: "e2", SourceID: "b", TargetID: "c"},
			{ID: "e3", SourceID: "a", TargetID: "c", Label: "manages"},
		},
	)
}

func workflow() *org.Snapshot {
	return org.NewSnapshot(org.DiagramWorkflow,
		[]org.Node{
			{ID: "w1", Label: "Workflow start", PermissionLevel: org.PermissionPublic},
			{ID: "w2", Label: "Workflow end", PermissionLevel: org.PermissionPublic},
		},
		[]org.Edge{{ID: "we", SourceID: "w1", TargetID: "w2"}},
	)
}
