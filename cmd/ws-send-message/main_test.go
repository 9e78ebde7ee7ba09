package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"pulse-backend/domain/events"
	"pulse-backend/domain/org"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, diagramType org.DiagramType, eventType string) error {
	return m.Called(ctx, diagramType, eventType).Error(0)
}

func cloudWatchEvent(t *testing.T, source string, detail interface{}) awsevents.CloudWatchEvent {
	t.Helper()
	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	return awsevents.CloudWatchEvent{ID: "evt-1", Source: source, Detail: raw}
}

func TestSend_NotifiesDiagramSubscribers(t *testing.T) {
	// Arrange
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, org.DiagramOrgChart, events.TypeNodeDeleted).Return(nil)
	h := &sendHandler{notifier: notifier, logger: zap.NewNop()}
	detail := events.NewNodeDeleted(org.DiagramOrgChart, "n1", []string{"e1"}, "admin")

	// Act
	err := h.handle(context.Background(), cloudWatchEvent(t, events.SourceBackend, detail))

	// Assert
	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestSend_IgnoresForeignSource(t *testing.T) {
	notifier := new(MockNotifier)
	h := &sendHandler{notifier: notifier, logger: zap.NewNop()}

	err := h.handle(context.Background(), cloudWatchEvent(t, "aws.s3", map[string]string{"diagram_type": "org_chart"}))

	require.NoError(t, err)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_DropsUnknownDiagramType(t *testing.T) {
	notifier := new(MockNotifier)
	h := &sendHandler{notifier: notifier, logger: zap.NewNop()}

	err := h.handle(context.Background(), cloudWatchEvent(t, events.SourceBackend, map[string]string{
		"diagram_type": "payroll",
		"event_type":   events.TypeNodeCreated,
	}))

	require.NoError(t, err)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_ReturnsNotifyFailureForRetry(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Notify", mock.Anything, org.DiagramWorkflow, events.TypeEdgeCreated).Return(errors.New("all sends failed"))
	h := &sendHandler{notifier: notifier, logger: zap.NewNop()}

	err := h.handle(context.Background(), cloudWatchEvent(t, events.SourceBackend, map[string]string{
		"diagram_type": "workflow",
		"event_type":   events.TypeEdgeCreated,
	}))

	assert.Error(t, err)
}
