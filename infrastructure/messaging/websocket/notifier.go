// Package websocket pushes "diagram invalidated" messages to API Gateway
// websocket connections subscribed to a diagram type. Clients refetch on
// receipt; the message carries no graph data.
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
	"pulse-backend/domain/org"

	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwTypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"
)

// MessageTypeInvalidated is the type of every pushed message
const MessageTypeInvalidated = "diagram.invalidated"

// Client is the subset of the API Gateway management API the notifier uses
type Client interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// Message is the JSON body sent to clients
type Message struct {
	Type        string          `json:"type"`
	DiagramType org.DiagramType `json:"diagram_type"`
	EventType   string          `json:"event_type"`
	Timestamp   int64           `json:"timestamp"`
}

// Notifier fans invalidations out to subscribed connections. Connections
// that API Gateway reports as gone are removed from the store.
type Notifier struct {
	client Client
	store  ports.ConnectionStore
	logger *zap.Logger
	now    func() time.Time
}

var _ ports.EventHandler = (*Notifier)(nil)

// NewNotifier creates a new notifier
func NewNotifier(client Client, store ports.ConnectionStore, logger *zap.Logger) *Notifier {
	return &Notifier{
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Notify pushes one invalidation for diagramType. It fails only when every
// send failed.
func (n *Notifier) Notify(ctx context.Context, diagramType org.DiagramType, eventType string) error {
	connectionIDs, err := n.store.ListByDiagram(ctx, diagramType)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}
	if len(connectionIDs) == 0 {
		return nil
	}

	body, err := json.Marshal(Message{
		Type:        MessageTypeInvalidated,
		DiagramType: diagramType,
		EventType:   eventType,
		Timestamp:   n.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sent, failed := 0, 0
	for _, id := range connectionIDs {
		if err := n.send(ctx, id, body); err != nil {
			n.logger.Warn("Failed to send to connection", zap.String("connection_id", id), zap.Error(err))
			failed++
			continue
		}
		sent++
	}

	n.logger.Debug("Invalidation pushed",
		zap.String("diagram_type", string(diagramType)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	if failed > 0 && sent == 0 {
		return fmt.Errorf("all %d message sends failed", failed)
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, connectionID string, body []byte) error {
	_, err := n.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: &connectionID,
		Data:         body,
	})
	if err == nil {
		return nil
	}

	var goneErr *apigwTypes.GoneException
	if errors.As(err, &goneErr) {
		n.logger.Info("Connection is gone, removing", zap.String("connection_id", connectionID))
		if rmErr := n.store.Remove(ctx, connectionID); rmErr != nil {
			n.logger.Warn("Failed to remove stale connection", zap.String("connection_id", connectionID), zap.Error(rmErr))
		}
		return nil
	}
	return fmt.Errorf("failed to send message: %w", err)
}

// Handle pushes an invalidation for the event's diagram
func (n *Notifier) Handle(ctx context.Context, event events.DomainEvent) error {
	return n.Notify(ctx, event.GetDiagramType(), event.GetEventType())
}

// CanHandle reports whether the event changes a diagram
func (n *Notifier) CanHandle(eventType string) bool {
	switch eventType {
	case events.TypeNodeCreated, events.TypeNodeUpdated, events.TypeNodeDeleted,
		events.TypeEdgeCreated, events.TypeEdgeDeleted, events.TypeDiagramReplaced:
		return true
	}
	return false
}
