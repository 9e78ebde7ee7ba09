package ports

import (
	"context"

	"pulse-backend/domain/events"
	"pulse-backend/domain/org"
)

// DiagramRepository stores the nodes and edges of every diagram type.
// Diagram types are independent partitions; an edge never crosses two of them.
type DiagramRepository interface {
	// GetDiagram loads every node and edge in insertion order. An unknown
	// but valid diagram type yields an empty snapshot.
	GetDiagram(ctx context.Context, diagramType org.DiagramType) (*org.Snapshot, error)

	GetNode(ctx context.Context, diagramType org.DiagramType, nodeID string) (*org.Node, error)

	// SaveNode upserts a node
	SaveNode(ctx context.Context, diagramType org.DiagramType, node org.Node) error

	// DeleteNode cascades to every edge touching the node and returns their ids
	DeleteNode(ctx context.Context, diagramType org.DiagramType, nodeID string) ([]string, error)

	GetEdge(ctx context.Context, diagramType org.DiagramType, edgeID string) (*org.Edge, error)

	SaveEdge(ctx context.Context, diagramType org.DiagramType, edge org.Edge) error

	DeleteEdge(ctx context.Context, diagramType org.DiagramType, edgeID string) error
}

// ConnectionStore tracks websocket clients waiting for diagram invalidations
type ConnectionStore interface {
	Add(ctx context.Context, connectionID string, diagramType org.DiagramType, userID string) error

	// Remove forgets the connection for every diagram type
	Remove(ctx context.Context, connectionID string) error

	ListByDiagram(ctx context.Context, diagramType org.DiagramType) ([]string, error)
}

// EventPublisher forwards diagram changes to whoever caches or displays them.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus is an in-process publisher with subscribers. Handlers run in
// subscription order.
type EventBus interface {
	EventPublisher
	Subscribe(eventType string, handler EventHandler) error
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler reacts to diagram changes.
type EventHandler interface {
	Handle(ctx context.Context, event events.DomainEvent) error
	CanHandle(eventType string) bool
}

// Cache holds diagram snapshots between change events. ttl is in seconds.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl int) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
