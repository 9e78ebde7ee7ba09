package handlers

import (
	"context"
	"fmt"

	"pulse-backend/application/commands"
	"pulse-backend/application/commands/bus"
	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
	"pulse-backend/pkg/errors"
	"pulse-backend/pkg/observability"

	"go.uber.org/zap"
)

// CreateEdgeHandler handles edge creation commands
type CreateEdgeHandler struct {
	repo     ports.DiagramRepository
	eventBus ports.EventBus
	recorder observability.Recorder
	logger   *zap.Logger
}

// NewCreateEdgeHandler creates a new create edge handler
func NewCreateEdgeHandler(
	repo ports.DiagramRepository,
	eventBus ports.EventBus,
	recorder observability.Recorder,
	logger *zap.Logger,
) *CreateEdgeHandler {
	return &CreateEdgeHandler{
		repo:     repo,
		eventBus: eventBus,
		recorder: recorder,
		logger:   logger,
	}
}

// Handle executes the create edge command. Both endpoints must already exist
// in the same diagram.
func (h *CreateEdgeHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.CreateEdgeCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	if _, err := h.repo.GetEdge(ctx, c.DiagramType, c.EdgeID); err == nil {
		return fmt.Errorf("edge %q: %w", c.EdgeID, errors.ErrDuplicateEdge)
	} else if !errors.IsNotFound(err) {
		return fmt.Errorf("failed to check edge: %w", err)
	}

	for _, endpoint := range []string{c.SourceID, c.TargetID} {
		if _, err := h.repo.GetNode(ctx, c.DiagramType, endpoint); err != nil {
			if errors.IsNotFound(err) {
				return fmt.Errorf("node %q: %w", endpoint, errors.ErrEdgeEndpointMissing)
			}
			return fmt.Errorf("failed to check endpoint: %w", err)
		}
	}

	edge := c.Edge()
	if err := h.repo.SaveEdge(ctx, c.DiagramType, edge); err != nil {
		return fmt.Errorf("failed to save edge: %w", err)
	}

	h.logger.Info("Edge created",
		zap.String("diagram_type", string(c.DiagramType)),
		zap.String("edge_id", edge.ID),
		zap.String("source_id", edge.SourceID),
		zap.String("target_id", edge.TargetID),
		zap.String("actor_id", c.ActorID),
	)
	h.recorder.IncMutation(MutationEdgeCreated)
	publishEvent(ctx, h.eventBus, h.logger, events.NewEdgeCreated(c.DiagramType, edge, c.ActorID))
	return nil
}

// DeleteEdgeHandler handles edge deletion commands
type DeleteEdgeHandler struct {
	repo     ports.DiagramRepository
	eventBus ports.EventBus
	recorder observability.Recorder
	logger   *zap.Logger
}

// NewDeleteEdgeHandler creates a new delete edge handler
func NewDeleteEdgeHandler(
	repo ports.DiagramRepository,
	eventBus ports.EventBus,
	recorder observability.Recorder,
	logger *zap.Logger,
) *DeleteEdgeHandler {
	return &DeleteEdgeHandler{
		repo:     repo,
		eventBus: eventBus,
		recorder: recorder,
		logger:   logger,
	}
}

// Handle executes the delete edge command
func (h *DeleteEdgeHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeleteEdgeCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	if err := h.repo.DeleteEdge(ctx, c.DiagramType, c.EdgeID); err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}

	h.logger.Info("Edge deleted",
		zap.String("diagram_type", string(c.DiagramType)),
		zap.String("edge_id", c.EdgeID),
		zap.String("actor_id", c.ActorID),
	)
	h.recorder.IncMutation(MutationEdgeDeleted)
	publishEvent(ctx, h.eventBus, h.logger, events.NewEdgeDeleted(c.DiagramType, c.EdgeID, c.ActorID))
	return nil
}

// Register wires every diagram command handler into the command bus.
func Register(
	commandBus *bus.CommandBus,
	repo ports.DiagramRepository,
	eventBus ports.EventBus,
	recorder observability.Recorder,
	logger *zap.Logger,
) error {
	if recorder == nil {
		recorder = observability.NopRecorder{}
	}
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.CreateNodeCommand{}, NewCreateNodeHandler(repo, eventBus, recorder, logger)},
		{commands.UpdateNodeCommand{}, NewUpdateNodeHandler(repo, eventBus, recorder, logger)},
		{commands.DeleteNodeCommand{}, NewDeleteNodeHandler(repo, eventBus, recorder, logger)},
		{commands.CreateEdgeCommand{}, NewCreateEdgeHandler(repo, eventBus, recorder, logger)},
		{commands.DeleteEdgeCommand{}, NewDeleteEdgeHandler(repo, eventBus, recorder, logger)},
	}
	for _, r := range registrations {
		if err := commandBus.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}
