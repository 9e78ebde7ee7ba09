package handlers

import (
	"context"
	"testing"

	"pulse-backend/application/commands"
	"pulse-backend/application/commands/bus"
	"pulse-backend/domain/org"
	"pulse-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateEdgeHandler_RequiresBothEndpoints(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	handler := NewCreateEdgeHandler(repo, new(MockEventBus), newCountingRecorder(), zap.NewNop())

	repo.On("GetEdge", ctx, org.DiagramOrgChart, "e-1").Return(nil, errors.ErrEdgeNotFound)
	repo.On("GetNode", ctx, org.DiagramOrgChart, "a").Return(&org.Node{ID: "a"}, nil)
	repo.On("GetNode", ctx, org.DiagramOrgChart, "b").Return(nil, errors.ErrNodeNotFound)

	// Act
	err := handler.Handle(ctx, commands.CreateEdgeCommand{
		DiagramType: org.DiagramOrgChart,
		EdgeID:      "e-1",
		ActorID:     "admin",
		SourceID:    "a",
		TargetID:    "b",
	})

	// Assert
	assert.ErrorIs(t, err, errors.ErrEdgeEndpointMissing)
	repo.AssertNotCalled(t, "SaveEdge", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateEdgeHandler_DefaultsToHierarchy(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	eventBus := new(MockEventBus)
	recorder := newCountingRecorder()
	handler := NewCreateEdgeHandler(repo, eventBus, recorder, zap.NewNop())

	expected := org.Edge{ID: "e-1", SourceID: "a", TargetID: "b", Label: "reports", EdgeType: org.EdgeHierarchy}
	repo.On("GetEdge", ctx, org.DiagramOrgChart, "e-1").Return(nil, errors.ErrEdgeNotFound)
	repo.On("GetNode", ctx, org.DiagramOrgChart, mock.Anything).Return(&org.Node{}, nil)
	repo.On("SaveEdge", ctx, org.DiagramOrgChart, expected).Return(nil)
	eventBus.On("Publish", ctx, mock.AnythingOfType("events.EdgeCreated")).Return(nil)

	err := handler.Handle(ctx, commands.CreateEdgeCommand{
		DiagramType: org.DiagramOrgChart, EdgeID: "e-1", ActorID: "admin", SourceID: "a", TargetID: "b", Label: "reports",
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
	assert.Equal(t, 1, recorder.mutations[MutationEdgeCreated])
}

func TestDeleteEdgeHandler_MissingEdge(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	eventBus := new(MockEventBus)
	handler := NewDeleteEdgeHandler(repo, eventBus, newCountingRecorder(), zap.NewNop())

	repo.On("DeleteEdge", ctx, org.DiagramWorkflow, "ghost").Return(errors.ErrEdgeNotFound)

	err := handler.Handle(ctx, commands.DeleteEdgeCommand{
		DiagramType: org.DiagramWorkflow, EdgeID: "ghost", ActorID: "admin",
	})

	assert.True(t, errors.IsNotFound(err))
	eventBus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRegister_ValidatesThroughBus(t *testing.T) {
	// Arrange
	commandBus := bus.NewCommandBus()
	repo := new(MockDiagramRepository)
	require.NoError(t, Register(commandBus, repo, new(MockEventBus), nil, zap.NewNop()))

	// Act
	err := commandBus.Send(context.Background(), commands.CreateEdgeCommand{
		DiagramType: "sales_funnel", EdgeID: "e-1", ActorID: "admin", SourceID: "a", TargetID: "b",
	})

	// Assert
	assert.True(t, errors.IsValidation(err))
	repo.AssertNotCalled(t, "GetEdge", mock.Anything, mock.Anything, mock.Anything)
}
