package handlers

import (
	"context"
	"fmt"
	"testing"

	"pulse-backend/application/commands"
	"pulse-backend/domain/events"
	"pulse-backend/domain/org"
	"pulse-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateNodeHandler_AppliesDefaults(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	eventBus := new(MockEventBus)
	recorder := newCountingRecorder()
	handler := NewCreateNodeHandler(repo, eventBus, recorder, zap.NewNop())

	cmd := commands.CreateNodeCommand{
		DiagramType: org.DiagramOrgChart,
		NodeID:      "n-1",
		ActorID:     "admin",
		Label:       "Finance",
	}
	expected := org.Node{
		ID:              "n-1",
		Label:           "Finance",
		NodeType:        org.DefaultNodeType,
		PermissionLevel: org.PermissionPublic,
	}

	repo.On("GetNode", ctx, org.DiagramOrgChart, "n-1").Return(nil, errors.ErrNodeNotFound)
	repo.On("SaveNode", ctx, org.DiagramOrgChart, expected).Return(nil)
	eventBus.On("Publish", ctx, mock.MatchedBy(func(e events.DomainEvent) bool {
		created, ok := e.(events.NodeCreated)
		return ok && created.Node == expected && created.ActorID == "admin"
	})).Return(nil)

	// Act
	err := handler.Handle(ctx, cmd)

	// Assert
	require.NoError(t, err)
	repo.AssertExpectations(t)
	eventBus.AssertExpectations(t)
	assert.Equal(t, 1, recorder.mutations[MutationNodeCreated])
}

func TestCreateNodeHandler_RejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	handler := NewCreateNodeHandler(repo, new(MockEventBus), newCountingRecorder(), zap.NewNop())

	repo.On("GetNode", ctx, org.DiagramOrgChart, "n-1").Return(&org.Node{ID: "n-1"}, nil)

	err := handler.Handle(ctx, commands.CreateNodeCommand{
		DiagramType: org.DiagramOrgChart, NodeID: "n-1", ActorID: "admin", Label: "Finance",
	})

	assert.ErrorIs(t, err, errors.ErrDuplicateNode)
	repo.AssertNotCalled(t, "SaveNode", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateNodeHandler_RejectsMissingParent(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	handler := NewCreateNodeHandler(repo, new(MockEventBus), newCountingRecorder(), zap.NewNop())

	repo.On("GetNode", ctx, org.DiagramOrgChart, "n-1").Return(nil, errors.ErrNodeNotFound)
	repo.On("GetNode", ctx, org.DiagramOrgChart, "ghost").Return(nil, errors.ErrNodeNotFound)

	err := handler.Handle(ctx, commands.CreateNodeCommand{
		DiagramType: org.DiagramOrgChart, NodeID: "n-1", ActorID: "admin", Label: "Finance", ParentID: "ghost",
	})

	assert.ErrorIs(t, err, errors.ErrParentNotFound)
}

func TestCreateNodeHandler_PublishFailureDoesNotFailCommand(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	eventBus := new(MockEventBus)
	handler := NewCreateNodeHandler(repo, eventBus, newCountingRecorder(), zap.NewNop())

	repo.On("GetNode", ctx, org.DiagramWorkflow, "w-1").Return(nil, errors.ErrNodeNotFound)
	repo.On("SaveNode", ctx, org.DiagramWorkflow, mock.Anything).Return(nil)
	eventBus.On("Publish", ctx, mock.Anything).Return(errors.ErrEventPublishFailed)

	err := handler.Handle(ctx, commands.CreateNodeCommand{
		DiagramType: org.DiagramWorkflow, NodeID: "w-1", ActorID: "admin", Label: "Intake",
	})

	assert.NoError(t, err)
}

func TestUpdateNodeHandler_ChangesOnlySetFields(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	eventBus := new(MockEventBus)
	handler := NewUpdateNodeHandler(repo, eventBus, newCountingRecorder(), zap.NewNop())

	current := &org.Node{
		ID:              "n-1",
		Label:           "Finance",
		Description:     "Budgets",
		NodeType:        "department",
		PermissionLevel: org.PermissionPublic,
	}
	level := org.PermissionAdmin
	label := "Treasury"

	repo.On("GetNode", ctx, org.DiagramOrgChart, "n-1").Return(current, nil)
	repo.On("SaveNode", ctx, org.DiagramOrgChart, org.Node{
		ID:              "n-1",
		Label:           "Treasury",
		Description:     "Budgets",
		NodeType:        "department",
		PermissionLevel: org.PermissionAdmin,
	}).Return(nil)
	eventBus.On("Publish", ctx, mock.AnythingOfType("events.NodeUpdated")).Return(nil)

	// Act
	err := handler.Handle(ctx, commands.UpdateNodeCommand{
		DiagramType:     org.DiagramOrgChart,
		NodeID:          "n-1",
		ActorID:         "admin",
		Label:           &label,
		PermissionLevel: &level,
	})

	// Assert
	require.NoError(t, err)
	repo.AssertExpectations(t)
	eventBus.AssertExpectations(t)
}

func TestUpdateNodeHandler_MissingNode(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	handler := NewUpdateNodeHandler(repo, new(MockEventBus), newCountingRecorder(), zap.NewNop())
	label := "x"

	repo.On("GetNode", ctx, org.DiagramOrgChart, "ghost").Return(nil, errors.ErrNodeNotFound)

	err := handler.Handle(ctx, commands.UpdateNodeCommand{
		DiagramType: org.DiagramOrgChart, NodeID: "ghost", ActorID: "admin", Label: &label,
	})

	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateNodeHandler_RejectsSelfParent(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	handler := NewUpdateNodeHandler(repo, new(MockEventBus), newCountingRecorder(), zap.NewNop())
	parent := "n-1"

	repo.On("GetNode", ctx, org.DiagramOrgChart, "n-1").Return(&org.Node{ID: "n-1"}, nil)

	err := handler.Handle(ctx, commands.UpdateNodeCommand{
		DiagramType: org.DiagramOrgChart, NodeID: "n-1", ActorID: "admin", ParentID: &parent,
	})

	assert.True(t, errors.IsValidation(err))
}

func TestDeleteNodeHandler_PublishesRemovedEdges(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	eventBus := new(MockEventBus)
	recorder := newCountingRecorder()
	handler := NewDeleteNodeHandler(repo, eventBus, recorder, zap.NewNop())

	repo.On("DeleteNode", ctx, org.DiagramOrgChart, "n-1").Return([]string{"e1", "e3"}, nil)
	eventBus.On("Publish", ctx, mock.MatchedBy(func(e events.DomainEvent) bool {
		deleted, ok := e.(events.NodeDeleted)
		return ok && deleted.NodeID == "n-1" && len(deleted.RemovedEdges) == 2
	})).Return(nil)

	err := handler.Handle(ctx, commands.DeleteNodeCommand{
		DiagramType: org.DiagramOrgChart, NodeID: "n-1", ActorID: "admin",
	})

	require.NoError(t, err)
	eventBus.AssertExpectations(t)
	assert.Equal(t, 1, recorder.mutations[MutationNodeDeleted])
}

func TestDeleteNodeHandler_IncompleteCascadeStillInvalidates(t *testing.T) {
	// Arrange
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	eventBus := new(MockEventBus)
	recorder := newCountingRecorder()
	handler := NewDeleteNodeHandler(repo, eventBus, recorder, zap.NewNop())

	cascadeErr := fmt.Errorf("node %q: %w", "n-1", errors.ErrCascadeIncomplete)
	repo.On("DeleteNode", ctx, org.DiagramOrgChart, "n-1").Return(nil, cascadeErr)
	eventBus.On("Publish", ctx, mock.MatchedBy(func(e events.DomainEvent) bool {
		deleted, ok := e.(events.NodeDeleted)
		return ok && deleted.NodeID == "n-1"
	})).Return(nil)

	// Act
	err := handler.Handle(ctx, commands.DeleteNodeCommand{
		DiagramType: org.DiagramOrgChart, NodeID: "n-1", ActorID: "admin",
	})

	// Assert
	assert.ErrorIs(t, err, errors.ErrCascadeIncomplete)
	eventBus.AssertExpectations(t)
	assert.Zero(t, recorder.mutations[MutationNodeDeleted])
}

func TestDeleteNodeHandler_FailedDeletePublishesNothing(t *testing.T) {
	ctx := context.Background()
	repo := new(MockDiagramRepository)
	eventBus := new(MockEventBus)
	handler := NewDeleteNodeHandler(repo, eventBus, newCountingRecorder(), zap.NewNop())

	repo.On("DeleteNode", ctx, org.DiagramOrgChart, "ghost").Return(nil, errors.ErrNodeNotFound)

	err := handler.Handle(ctx, commands.DeleteNodeCommand{DiagramType: org.DiagramOrgChart, NodeID: "ghost"})

	assert.True(t, errors.IsNotFound(err))
	eventBus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestHandlers_RejectWrongCommandType(t *testing.T) {
	handler := NewDeleteNodeHandler(new(MockDiagramRepository), new(MockEventBus), newCountingRecorder(), zap.NewNop())

	err := handler.Handle(context.Background(), commands.DeleteEdgeCommand{})

	assert.Error(t, err)
}
