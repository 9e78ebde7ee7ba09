package events

import (
	"time"

	"pulse-backend/domain/org"
)

// SourceBackend identifies this service as the event source on the bus.
const SourceBackend = "pulse.backend"

// Event types
const (
	TypeNodeCreated     = "node.created"
	TypeNodeUpdated     = "node.updated"
	TypeNodeDeleted     = "node.deleted"
	TypeEdgeCreated     = "edge.created"
	TypeEdgeDeleted     = "edge.deleted"
	TypeDiagramReplaced = "diagram.replaced"
)

// DomainEvent is the base interface for all domain events.
// Every event belongs to exactly one diagram so subscribers can invalidate
// the snapshots of that diagram only.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
	GetDiagramType() org.DiagramType
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string          `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	DiagramType org.DiagramType `json:"diagram_type"`
	ActorID     string          `json:"actor_id,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     int             `json:"version"`
}

func (e BaseEvent) GetAggregateID() string { return e.AggregateID }
func (e BaseEvent) GetEventType() string { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int { return e.Version }
func (e BaseEvent) GetDiagramType() org.DiagramType { return e.DiagramType }

func newBase(aggregateID, eventType string, diagramType org.DiagramType, actorID string) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		DiagramType: diagramType,
		ActorID:     actorID,
		Timestamp:   time.Now().UTC(),
		Version:     1,
	}
}

// Node Events

// NodeCreated is raised when a node is added to a diagram
type NodeCreated struct {
	BaseEvent
	Node org.Node `json:"node"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(diagramType org.DiagramType, node org.Node, actorID string) NodeCreated {
	return NodeCreated{
		BaseEvent: newBase(node.ID, TypeNodeCreated, diagramType, actorID),
		Node:      node,
	}
}

// NodeUpdated is raised when any node field changes
type NodeUpdated struct {
	BaseEvent
	Node org.Node `json:"node"`
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(diagramType org.DiagramType, node org.Node, actorID string) NodeUpdated {
	return NodeUpdated{
		BaseEvent: newBase(node.ID, TypeNodeUpdated, diagramType, actorID),
		Node:      node,
	}
}

// NodeDeleted is raised when a node and its edges are removed
type NodeDeleted struct {
	BaseEvent
	NodeID       string   `json:"node_id"`
	RemovedEdges []string `json:"removed_edges,omitempty"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(diagramType org.DiagramType, nodeID string, removedEdges []string, actorID string) NodeDeleted {
	return NodeDeleted{
		BaseEvent:    newBase(nodeID, TypeNodeDeleted, diagramType, actorID),
		NodeID:       nodeID,
		RemovedEdges: removedEdges,
	}
}

// Edge Events

// EdgeCreated is raised when two nodes are connected
type EdgeCreated struct {
	BaseEvent
	Edge org.Edge `json:"edge"`
}

// NewEdgeCreated creates an EdgeCreated event
func NewEdgeCreated(diagramType org.DiagramType, edge org.Edge, actorID string) EdgeCreated {
	return EdgeCreated{
		BaseEvent: newBase(edge.ID, TypeEdgeCreated, diagramType, actorID),
		Edge:      edge,
	}
}

// EdgeDeleted is raised when an edge is removed
type EdgeDeleted struct {
	BaseEvent
	EdgeID string `json:"edge_id"`
}

// NewEdgeDeleted creates an EdgeDeleted event
func NewEdgeDeleted(diagramType org.DiagramType, edgeID string, actorID string) EdgeDeleted {
	return EdgeDeleted{
		BaseEvent: newBase(edgeID, TypeEdgeDeleted, diagramType, actorID),
		EdgeID:    edgeID,
	}
}

// DiagramReplaced is raised when a diagram changed outside the command path,
// for example a data file edited on disk.
type DiagramReplaced struct {
	BaseEvent
}

// NewDiagramReplaced creates a DiagramReplaced event
func NewDiagramReplaced(diagramType org.DiagramType) DiagramReplaced {
	return DiagramReplaced{BaseEvent: newBase(string(diagramType), TypeDiagramReplaced, diagramType, "")}
}
