package main

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"pulse-backend/domain/org"
	"pulse-backend/pkg/auth"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockConnectionStore struct {
	mock.Mock
}

func (m *MockConnectionStore) Add(ctx context.Context, connectionID string, diagramType org.DiagramType, userID string) error {
	return m.Called(ctx, connectionID, diagramType, userID).Error(0)
}

func (m *MockConnectionStore) Remove(ctx context.Context, connectionID string) error {
	return m.Called(ctx, connectionID).Error(0)
}

func (m *MockConnectionStore) ListByDiagram(ctx context.Context, diagramType org.DiagramType) ([]string, error) {
	args := m.Called(ctx, diagramType)
	return args.Get(0).([]string), args.Error(1)
}

type stubTokens struct{}

func (stubTokens) ValidateToken(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{UserID: "manager", Role: org.RoleManager}, nil
}

func request(route string, query map[string]string) events.APIGatewayWebsocketProxyRequest {
	return events.APIGatewayWebsocketProxyRequest{
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{
			ConnectionID: "conn-1",
			RouteKey:     route,
		},
		QueryStringParameters: query,
	}
}

func TestConnect_StoresSubscription(t *testing.T) {
	// Arrange
	store := new(MockConnectionStore)
	store.On("Add", mock.Anything, "conn-1", org.DiagramWorkflow, "manager").Return(nil)
	h := &connectHandler{store: store, tokens: stubTokens{}, logger: zap.NewNop()}

	// Act
	resp, err := h.handle(context.Background(), request(routeConnect, map[string]string{
		"token":        "good",
		"diagram_type": "workflow",
	}))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, "connection_established")
	store.AssertExpectations(t)
}

func TestConnect_RejectsBadToken(t *testing.T) {
	store := new(MockConnectionStore)
	h := &connectHandler{store: store, tokens: stubTokens{}, logger: zap.NewNop()}

	resp, err := h.handle(context.Background(), request(routeConnect, map[string]string{
		"token":        "forged",
		"diagram_type": "workflow",
	}))

	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	store.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConnect_RejectsUnknownDiagramType(t *testing.T) {
	h := &connectHandler{store: new(MockConnectionStore), tokens: stubTokens{}, logger: zap.NewNop()}

	resp, err := h.handle(context.Background(), request(routeConnect, map[string]string{
		"token":        "good",
		"diagram_type": "payroll",
	}))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDisconnect_RemovesConnection(t *testing.T) {
	store := new(MockConnectionStore)
	store.On("Remove", mock.Anything, "conn-1").Return(nil).Once()
	h := &connectHandler{store: store, tokens: stubTokens{}, logger: zap.NewNop()}

	resp, err := h.handle(context.Background(), request(routeDisconnect, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	store.AssertExpectations(t)
}

func TestDisconnect_StoreFailure(t *testing.T) {
	store := new(MockConnectionStore)
	store.On("Remove", mock.Anything, "conn-1").Return(errors.New("throttled"))
	h := &connectHandler{store: store, tokens: stubTokens{}, logger: zap.NewNop()}

	resp, err := h.handle(context.Background(), request(routeDisconnect, nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
