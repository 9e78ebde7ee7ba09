package org

// RestrictedLabel replaces the label of every node the viewer may not see.
const RestrictedLabel = "restricted"

// DisplayNode is the display-safe projection of a Node for one viewer.
type DisplayNode struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	Description     string          `json:"description,omitempty"`
	NodeType        string          `json:"node_type"`
	ParentID        string          `json:"parent_id,omitempty"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	Restricted      bool            `json:"is_restricted"`
}

// Redact projects n for a viewer holding clearance. It is the only way a
// node reaches the compiler, the detail panel or an API response.
func Redact(n Node, clearance PermissionLevel) DisplayNode {
	if n.PermissionLevel.Exceeds(clearance) {
		return DisplayNode{
			ID:              n.ID,
			Label:           RestrictedLabel,
			NodeType:        n.NodeType,
			PermissionLevel: n.PermissionLevel,
			Restricted:      true,
		}
	}
	return DisplayNode{
		ID:              n.ID,
		Label:           n.Label,
		Description:     n.Description,
		NodeType:        n.NodeType,
		ParentID:        n.ParentID,
		PermissionLevel: n.PermissionLevel,
	}
}

// View is a snapshot after redaction: display nodes in snapshot order plus
// the untouched edge list.
type View struct {
	DiagramType DiagramType
	Nodes       []DisplayNode
	Edges       []Edge
}

// RedactSnapshot applies Redact to every node of s.
func RedactSnapshot(s *Snapshot, clearance PermissionLevel) View {
	nodes := make([]DisplayNode, len(s.Nodes))
	for i, n := range s.Nodes {
		nodes[i] = Redact(n, clearance)
	}
	return View{
		DiagramType: s.DiagramType,
		Nodes:       nodes,
		Edges:       append([]Edge(nil), s.Edges...),
	}
}
