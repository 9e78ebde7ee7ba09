// Package local dispatches domain events to in-process subscribers and
// optionally forwards them to an outer publisher such as EventBridge.
package local

import (
	"context"
	"sync"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"

	"go.uber.org/zap"
)

// AllEvents subscribes a handler to every event type it can handle
const AllEvents = "*"

// Bus implements ports.EventBus. Handlers run synchronously in
// subscription order, so a cache subscribed before the canvas registry is
// invalidated before any canvas refetches.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	forward  ports.EventPublisher
	logger   *zap.Logger
}

var _ ports.EventBus = (*Bus)(nil)

// NewBus creates a bus. forward may be nil.
func NewBus(forward ports.EventPublisher, logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]ports.EventHandler),
		forward:  forward,
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type, or AllEvents
func (b *Bus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a handler
func (b *Bus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[eventType]
	for i, h := range list {
		if h == handler {
			b.handlers[eventType] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return nil
}

// Publish dispatches the event locally, then forwards it. Local handler
// failures are logged; only a forwarding failure is returned.
func (b *Bus) Publish(ctx context.Context, event events.DomainEvent) error {
	b.dispatch(ctx, event)
	if b.forward == nil {
		return nil
	}
	return b.forward.Publish(ctx, event)
}

// PublishBatch dispatches every event locally, then forwards the batch
func (b *Bus) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		b.dispatch(ctx, event)
	}
	if b.forward == nil {
		return nil
	}
	return b.forward.PublishBatch(ctx, domainEvents)
}

func (b *Bus) dispatch(ctx context.Context, event events.DomainEvent) {
	eventType := event.GetEventType()

	b.mu.RLock()
	targets := make([]ports.EventHandler, 0, len(b.handlers[AllEvents])+len(b.handlers[eventType]))
	targets = append(targets, b.handlers[AllEvents]...)
	targets = append(targets, b.handlers[eventType]...)
	b.mu.RUnlock()

	for _, h := range targets {
		if !h.CanHandle(eventType) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("event_type", eventType),
				zap.String("diagram_type", string(event.GetDiagramType())),
				zap.Error(err),
			)
		}
	}
}
