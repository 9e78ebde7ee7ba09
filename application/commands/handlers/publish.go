package handlers

import (
	"context"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"

	"go.uber.org/zap"
)

// Mutation kinds reported to the metrics recorder
const (
	MutationNodeCreated = "node_created"
	MutationNodeUpdated = "node_updated"
	MutationNodeDeleted = "node_deleted"
	MutationEdgeCreated = "edge_created"
	MutationEdgeDeleted = "edge_deleted"
)

// publishEvent sends an event after the write has been committed. A publish
// failure is logged and not returned: the write already happened and
// subscribers fall back to their next refresh.
func publishEvent(ctx context.Context, bus ports.EventBus, logger *zap.Logger, event events.DomainEvent) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("event_type", event.GetEventType()),
			zap.String("aggregate_id", event.GetAggregateID()),
			zap.String("diagram_type", string(event.GetDiagramType())),
			zap.Error(err),
		)
	}
}
