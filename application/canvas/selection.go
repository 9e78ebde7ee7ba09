// Package canvas holds the server-side state of one viewer's interactive
// diagram: the selection overlay, the click bridge and the canvas session.
package canvas

import (
	"pulse-backend/application/diagram"
	"pulse-backend/application/ports"
	"pulse-backend/domain/org"
)

// Highlight classes applied to markup elements.
const (
	ClassSelected   = "node-selected"
	ClassRestricted = "node-restricted"
)

// ClickOutcome reports what a click did.
type ClickOutcome string

const (
	ClickSelected   ClickOutcome = "selected"
	ClickRestricted ClickOutcome = "restricted"
	ClickUnresolved ClickOutcome = "unresolved"
	ClickUnbound    ClickOutcome = "unbound"
)

// DetailListener is told when the selection enters or leaves Selected.
type DetailListener interface {
	OnSelect(renderID string, node org.DisplayNode)
	OnClear()
}

// SelectionMachine tracks the single highlighted node of a compiled snapshot.
//
// States are Idle (selected == "") and Selected(renderID). A restricted node
// or a render-id without an element never becomes the selection.
type SelectionMachine struct {
	resolver ports.ElementResolver
	listener DetailListener

	ids      diagram.RenderIDMap
	markup   ports.Markup
	selected string
}

// NewSelectionMachine creates an Idle machine. listener may be nil.
func NewSelectionMachine(resolver ports.ElementResolver, listener DetailListener) *SelectionMachine {
	return &SelectionMachine{resolver: resolver, listener: listener}
}

// Selected returns the selected render-id, or false when Idle.
func (m *SelectionMachine) Selected() (string, bool) {
	return m.selected, m.selected != ""
}

// Reset returns to Idle and forgets the compiled snapshot. It runs whenever
// the snapshot is replaced, even if the selected node survives in the new one.
func (m *SelectionMachine) Reset() {
	m.clear()
	m.ids = diagram.RenderIDMap{}
	m.markup = nil
}

// Attach binds the render-id table of a fresh compile. Call after Reset.
func (m *SelectionMachine) Attach(ids diagram.RenderIDMap) {
	m.ids = ids
}

// Rebind swaps in new markup for the attached snapshot. Restricted elements
// are marked and an existing selection is highlighted again, so a re-render
// of the same snapshot keeps the selection.
func (m *SelectionMachine) Rebind(markup ports.Markup) {
	m.markup = markup
	if markup == nil {
		return
	}
	for _, rid := range m.ids.RenderIDs() {
		node, _ := m.ids.Node(rid)
		if !node.Restricted {
			continue
		}
		if el, ok := m.resolver.Resolve(markup, rid); ok {
			el.AddClass(ClassRestricted)
		}
	}
	if m.selected != "" {
		if el, ok := m.resolver.Resolve(markup, m.selected); ok {
			el.AddClass(ClassSelected)
		}
	}
}

// Click handles a click-callback invocation. Misses are no-ops.
func (m *SelectionMachine) Click(renderID string) ClickOutcome {
	node, ok := m.ids.Node(renderID)
	if !ok {
		return ClickUnresolved
	}
	if node.Restricted {
		return ClickRestricted
	}
	el, ok := m.resolver.Resolve(m.markup, renderID)
	if !ok {
		return ClickUnresolved
	}

	if m.selected != "" && m.selected != renderID {
		if prev, ok := m.resolver.Resolve(m.markup, m.selected); ok {
			prev.RemoveClass(ClassSelected)
		}
	}
	el.AddClass(ClassSelected)
	m.selected = renderID

	if m.listener != nil {
		m.listener.OnSelect(renderID, node)
	}
	return ClickSelected
}

// Close returns to Idle on an explicit close action.
func (m *SelectionMachine) Close() {
	m.clear()
}

func (m *SelectionMachine) clear() {
	if m.selected == "" {
		return
	}
	if m.markup != nil {
		if el, ok := m.resolver.Resolve(m.markup, m.selected); ok {
			el.RemoveClass(ClassSelected)
		}
	}
	m.selected = ""
	if m.listener != nil {
		m.listener.OnClear()
	}
}
