// Package main implements the WebSocket $connect and $disconnect Lambda.
// A client subscribes to one diagram type per connection and is told to
// refetch whenever that diagram changes.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"pulse-backend/application/ports"
	"pulse-backend/domain/org"
	"pulse-backend/infrastructure/config"
	"pulse-backend/infrastructure/di"
	"pulse-backend/pkg/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

const (
	routeConnect    = "$connect"
	routeDisconnect = "$disconnect"
)

// TokenValidator validates session tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type connectHandler struct {
	store  ports.ConnectionStore
	tokens TokenValidator
	logger *zap.Logger
}

func respond(status int, body interface{}) events.APIGatewayProxyResponse {
	raw, _ := json.Marshal(body)
	return events.APIGatewayProxyResponse{StatusCode: status, Body: string(raw)}
}

func (h *connectHandler) handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := req.RequestContext.ConnectionID

	switch req.RequestContext.RouteKey {
	case routeDisconnect:
		if err := h.store.Remove(ctx, connectionID); err != nil {
			h.logger.Error("Failed to remove connection", zap.String("connection_id", connectionID), zap.Error(err))
			return respond(http.StatusInternalServerError, map[string]string{"error": "internal server error"}), nil
		}
		return respond(http.StatusOK, map[string]string{"status": "disconnected"}), nil
	case routeConnect:
	default:
		return respond(http.StatusBadRequest, map[string]string{"error": "unsupported route"}), nil
	}

	token := req.QueryStringParameters["token"]
	if token == "" {
		token = strings.TrimPrefix(req.Headers["Authorization"], "Bearer ")
	}
	if token == "" {
		return respond(http.StatusUnauthorized, map[string]string{"error": "unauthorized"}), nil
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Info("Websocket authentication failed", zap.String("connection_id", connectionID), zap.Error(err))
		return respond(http.StatusUnauthorized, map[string]string{"error": "unauthorized"}), nil
	}

	diagramType, err := org.ParseDiagramType(req.QueryStringParameters["diagram_type"])
	if err != nil {
		return respond(http.StatusBadRequest, map[string]string{"error": err.Error()}), nil
	}

	if err := h.store.Add(ctx, connectionID, diagramType, claims.UserID); err != nil {
		h.logger.Error("Failed to store connection",
			zap.String("connection_id", connectionID),
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		return respond(http.StatusInternalServerError, map[string]string{"error": "internal server error"}), nil
	}

	h.logger.Info("Websocket connection established",
		zap.String("connection_id", connectionID),
		zap.String("user_id", claims.UserID),
		zap.String("diagram_type", string(diagramType)),
	)
	return respond(http.StatusOK, map[string]interface{}{
		"type":          "connection_established",
		"connection_id": connectionID,
		"diagram_type":  diagramType,
		"timestamp":     time.Now().Unix(),
	}), nil
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
	tokens, err := di.ProvideJWTService(cfg)
	if err != nil {
		log.Fatalf("Failed to create JWT service: %v", err)
	}

	h := &connectHandler{
		store:  di.ProvideConnectionStore(di.ProvideDynamoDBClient(awsCfg), cfg, logger),
		tokens: tokens,
		logger: logger,
	}
	lambda.Start(h.handle)
}
