package canvas

import (
	"pulse-backend/application/diagram"
	"pulse-backend/domain/org"
)

// Actions offered in the detail panel.
const (
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// Detail is the content of the node detail panel.
type Detail struct {
	RenderID    string              `json:"render_id"`
	Node        org.DisplayNode     `json:"node"`
	Connections diagram.Connections `json:"connections"`
	Actions     []string            `json:"actions"`
}

// DetailPanel builds the detail view for the selected node.
type DetailPanel struct {
	viewer   org.Viewer
	snapshot *org.Snapshot
	current  *Detail
}

var _ DetailListener = (*DetailPanel)(nil)

func NewDetailPanel(viewer org.Viewer) *DetailPanel {
	return &DetailPanel{viewer: viewer}
}

// SetSnapshot points the panel at a new snapshot and clears it.
func (p *DetailPanel) SetSnapshot(s *org.Snapshot) {
	p.snapshot = s
	p.current = nil
}

func (p *DetailPanel) OnSelect(renderID string, node org.DisplayNode) {
	actions := []string{}
	if p.viewer.CanEdit() {
		actions = append(actions, ActionEdit, ActionDelete)
	}
	p.current = &Detail{
		RenderID:    renderID,
		Node:        node,
		Connections: diagram.ResolveConnections(node.ID, p.snapshot, p.viewer.Clearance),
		Actions:     actions,
	}
}

func (p *DetailPanel) OnClear() {
	p.current = nil
}

// Current returns the open detail, or nil when the panel is closed.
func (p *DetailPanel) Current() *Detail {
	if p.current == nil {
		return nil
	}
	d := *p.current
	return &d
}
