package handlers

import (
	"context"

	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
	"pulse-backend/domain/org"
	"pulse-backend/pkg/observability"

	"github.com/stretchr/testify/mock"
)

type MockDiagramRepository struct {
	mock.Mock
}

func (m *MockDiagramRepository) GetDiagram(ctx context.Context, dt org.DiagramType) (*org.Snapshot, error) {
	args := m.Called(ctx, dt)
	if snap := args.Get(0); snap != nil {
		return snap.(*org.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiagramRepository) GetNode(ctx context.Context, dt org.DiagramType, nodeID string) (*org.Node, error) {
	args := m.Called(ctx, dt, nodeID)
	if node := args.Get(0); node != nil {
		return node.(*org.Node), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiagramRepository) SaveNode(ctx context.Context, dt org.DiagramType, node org.Node) error {
	return m.Called(ctx, dt, node).Error(0)
}

func (m *MockDiagramRepository) DeleteNode(ctx context.Context, dt org.DiagramType, nodeID string) ([]string, error) {
	args := m.Called(ctx, dt, nodeID)
	if removed := args.Get(0); removed != nil {
		return removed.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiagramRepository) GetEdge(ctx context.Context, dt org.DiagramType, edgeID string) (*org.Edge, error) {
	args := m.Called(ctx, dt, edgeID)
	if edge := args.Get(0); edge != nil {
		return edge.(*org.Edge), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDiagramRepository) SaveEdge(ctx context.Context, dt org.DiagramType, edge org.Edge) error {
	return m.Called(ctx, dt, edge).Error(0)
}

func (m *MockDiagramRepository) DeleteEdge(ctx context.Context, dt org.DiagramType, edgeID string) error {
	return m.Called(ctx, dt, edgeID).Error(0)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventBus) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	return m.Called(ctx, evts).Error(0)
}

func (m *MockEventBus) Subscribe(eventType string, handler ports.EventHandler) error {
	return m.Called(eventType, handler).Error(0)
}

func (m *MockEventBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	return m.Called(eventType, handler).Error(0)
}

type countingRecorder struct {
	observability.NopRecorder
	mutations map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{mutations: make(map[string]int)}
}

func (r *countingRecorder) IncMutation(kind string) { r.mutations[kind]++ }
