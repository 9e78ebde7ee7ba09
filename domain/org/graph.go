package org

import (
	"fmt"
	"time"
)

// DiagramType names one diagram instance.
type DiagramType string

const (
	DiagramOrgChart        DiagramType = "org_chart"
	DiagramBusinessProcess DiagramType = "business_process"
	DiagramWorkflow        DiagramType = "workflow"
)

// DiagramTypes lists every supported diagram type.
func DiagramTypes() []DiagramType {
	return []DiagramType{DiagramOrgChart, DiagramBusinessProcess, DiagramWorkflow}
}

// ParseDiagramType validates a diagram type from a path or flag.
func ParseDiagramType(s string) (DiagramType, error) {
	for _, t := range DiagramTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown diagram type: %s", s)
}

// EdgeType categorizes a connection.
type EdgeType string

const (
	EdgeHierarchy     EdgeType = "hierarchy"
	EdgeFlow          EdgeType = "flow"
	EdgeSequence      EdgeType = "sequence"
	EdgeCollaboration EdgeType = "collaboration"
)

// IsValid reports whether t is a known edge type.
func (t EdgeType) IsValid() bool {
	switch t {
	case EdgeHierarchy, EdgeFlow, EdgeSequence, EdgeCollaboration:
		return true
	}
	return false
}

// Default values applied when a create request leaves a field empty.
const (
	DefaultNodeType        = "department"
	DefaultPermissionLevel = PermissionPublic
	DefaultEdgeType        = EdgeHierarchy
)

// Node is a vertex of the organizational graph. NodeType is an open enum
// (department, team, person, process, workflow_step, ...).
type Node struct {
	ID              string          `json:"id" dynamodbav:"NodeID"`
	Label           string          `json:"label" dynamodbav:"Label"`
	Description     string          `json:"description,omitempty" dynamodbav:"Description,omitempty"`
	NodeType        string          `json:"node_type" dynamodbav:"NodeType"`
	ParentID        string          `json:"parent_id,omitempty" dynamodbav:"ParentID,omitempty"`
	PermissionLevel PermissionLevel `json:"permission_level" dynamodbav:"PermissionLevel"`
}

// Edge connects two nodes of the same diagram.
type Edge struct {
	ID       string   `json:"id" dynamodbav:"EdgeID"`
	SourceID string   `json:"source_id" dynamodbav:"SourceID"`
	TargetID string   `json:"target_id" dynamodbav:"TargetID"`
	Label    string   `json:"label,omitempty" dynamodbav:"Label,omitempty"`
	EdgeType EdgeType `json:"edge_type" dynamodbav:"EdgeType"`
}

// Touches reports whether nodeID is either endpoint of e.
func (e Edge) Touches(nodeID string) bool {
	return e.SourceID == nodeID || e.TargetID == nodeID
}

// Snapshot is one immutable fetch of a diagram. It is replaced wholesale on
// every fetch or mutation and never patched in place.
type Snapshot struct {
	DiagramType DiagramType `json:"diagram_type"`
	Nodes       []Node      `json:"nodes"`
	Edges       []Edge      `json:"edges"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// NewSnapshot copies nodes and edges so the caller cannot mutate the
// snapshot afterwards.
func NewSnapshot(diagramType DiagramType, nodes []Node, edges []Edge) *Snapshot {
	return &Snapshot{
		DiagramType: diagramType,
		Nodes:       append([]Node(nil), nodes...),
		Edges:       append([]Edge(nil), edges...),
		FetchedAt:   time.Now().UTC(),
	}
}

// NodeIndex maps node ids to their position in Nodes.
func (s *Snapshot) NodeIndex() map[string]int {
	index := make(map[string]int, len(s.Nodes))
	for i, n := range s.Nodes {
		index[n.ID] = i
	}
	return index
}

// Node looks up a node by id.
func (s *Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge looks up an edge by id.
func (s *Snapshot) Edge(id string) (Edge, bool) {
	for _, e := range s.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// ResolvedEdges returns the edges whose endpoints both exist in the
// snapshot, in snapshot order. Dangling edges are dropped silently.
func (s *Snapshot) ResolvedEdges() []Edge {
	index := s.NodeIndex()
	edges := make([]Edge, 0, len(s.Edges))
	for _, e := range s.Edges {
		_, srcOK := index[e.SourceID]
		_, tgtOK := index[e.TargetID]
		if srcOK && tgtOK {
			edges = append(edges, e)
		}
	}
	return edges
}
