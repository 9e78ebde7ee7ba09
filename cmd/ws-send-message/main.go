// Package main implements the Lambda that turns diagram mutation events from
// EventBridge into websocket invalidation pushes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"pulse-backend/domain/events"
	"pulse-backend/domain/org"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/di"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// Notifier pushes an invalidation for a diagram type
type Notifier interface {
	Notify(ctx context.Context, diagramType org.DiagramType, eventType string) error
}

type sendHandler struct {
	notifier Notifier
	logger   *zap.Logger
}

func (h *sendHandler) handle(ctx context.Context, event awsevents.CloudWatchEvent) error {
	if event.Source != events.SourceBackend {
		h.logger.Warn("Ignoring event from unexpected source", zap.String("source", event.Source))
		return nil
	}

	var base events.BaseEvent
	if err := json.Unmarshal(event.Detail, &base); err != nil {
		// A malformed detail would fail on every retry
		h.logger.Error("Failed to decode event detail", zap.String("id", event.ID), zap.Error(err))
		return nil
	}
	diagramType, err := org.ParseDiagramType(string(base.DiagramType))
	if err != nil {
		h.logger.Error("Event for unknown diagram type",
			zap.String("id", event.ID),
			zap.String("diagram_type", string(base.DiagramType)),
		)
		return nil
	}

	if err := h.notifier.Notify(ctx, diagramType, base.EventType); err != nil {
		return fmt.Errorf("failed to notify %s subscribers: %w", diagramType, err)
	}
	h.logger.Info("Invalidation pushed",
		zap.String("diagram_type", string(diagramType)),
		zap.String("event_type", base.EventType),
	)
	return nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	connections := di.ProvideConnectionStore(di.ProvideDynamoDBClient(awsCfg), cfg, logger)
	notifier := di.ProvideNotifier(awsCfg, cfg, connections, logger)
	if notifier == nil {
		log.Fatal("WEBSOCKET_ENDPOINT is required")
	}

	h := &sendHandler{notifier: notifier, logger: logger}
	lambda.Start(h.handle)
}
