package queries

import (
	"pulse-backend/application/diagram"
	"pulse-backend/domain/org"
	"pulse-backend/pkg/errors"
)

// GetDiagramQuery fetches a diagram redacted for one role
type GetDiagramQuery struct {
	DiagramType org.DiagramType `json:"diagram_type"`
	Role        org.Role        `json:"role"`
}

// Validate validates the query
func (q GetDiagramQuery) Validate() error {
	if _, err := org.ParseDiagramType(string(q.DiagramType)); err != nil {
		return errors.NewNotFoundError("diagram type " + string(q.DiagramType))
	}
	if q.Role == "" {
		return errors.NewValidationError("role is required")
	}
	return nil
}

// GetDiagramResult is a redacted diagram plus its compiled source.
// Edges only contains edges whose endpoints both exist.
type GetDiagramResult struct {
	DiagramType org.DiagramType   `json:"diagram_type"`
	Nodes       []org.DisplayNode `json:"nodes"`
	Edges       []org.Edge        `json:"edges"`
	Source      string            `json:"source"`
	Stats       DiagramStats      `json:"stats"`
}

// DiagramStats contains diagram statistics
type DiagramStats struct {
	NodeCount       int `json:"node_count"`
	EdgeCount       int `json:"edge_count"`
	RestrictedCount int `json:"restricted_count"`
	DroppedEdges    int `json:"dropped_edges"`
}

// GetRawDiagramQuery fetches the unredacted nodes and edges. Admin only.
type GetRawDiagramQuery struct {
	DiagramType org.DiagramType `json:"diagram_type"`
}

// Validate validates the query
func (q GetRawDiagramQuery) Validate() error {
	if _, err := org.ParseDiagramType(string(q.DiagramType)); err != nil {
		return errors.NewNotFoundError("diagram type " + string(q.DiagramType))
	}
	return nil
}

// GetNodeQuery fetches one redacted node and its connections
type GetNodeQuery struct {
	DiagramType org.DiagramType `json:"diagram_type"`
	NodeID      string          `json:"node_id"`
	Role        org.Role        `json:"role"`
}

// Validate validates the query
func (q GetNodeQuery) Validate() error {
	if _, err := org.ParseDiagramType(string(q.DiagramType)); err != nil {
		return errors.NewNotFoundError("diagram type " + string(q.DiagramType))
	}
	if q.NodeID == "" {
		return errors.NewValidationError("node_id is required")
	}
	if q.Role == "" {
		return errors.NewValidationError("role is required")
	}
	return nil
}

// GetNodeResult is the detail view of a node outside a canvas session
type GetNodeResult struct {
	Node        org.DisplayNode     `json:"node"`
	Connections diagram.Connections `json:"connections"`
}
