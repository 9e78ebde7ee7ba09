package handlers

import (
	"context"
	stderrors "errors"
	"fmt"

	"pulse-backend/application/commands"
	"pulse-backend/application/commands/bus"
	"pulse-backend/application/ports"
	"pulse-backend/domain/events"
	"pulse-backend/pkg/errors"
	"pulse-backend/pkg/observability"

	"go.uber.org/zap"
)

// CreateNodeHandler handles node creation commands
type CreateNodeHandler struct {
	repo     ports.DiagramRepository
	eventBus ports.EventBus
	recorder observability.Recorder
	logger   *zap.Logger
}

// NewCreateNodeHandler creates a new create node handler
func NewCreateNodeHandler(
	repo ports.DiagramRepository,
	eventBus ports.EventBus,
	recorder observability.Recorder,
	logger *zap.Logger,
) *CreateNodeHandler {
	return &CreateNodeHandler{
		repo:     repo,
		eventBus: eventBus,
		recorder: recorder,
		logger:   logger,
	}
}

// Handle executes the create node command
func (h *CreateNodeHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.CreateNodeCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	if _, err := h.repo.GetNode(ctx, c.DiagramType, c.NodeID); err == nil {
		return fmt.Errorf("node %q: %w", c.NodeID, errors.ErrDuplicateNode)
	} else if !errors.IsNotFound(err) {
		return fmt.Errorf("failed to check node: %w", err)
	}

	if c.ParentID != "" {
		if _, err := h.repo.GetNode(ctx, c.DiagramType, c.ParentID); err != nil {
			if errors.IsNotFound(err) {
				return fmt.Errorf("parent %q: %w", c.ParentID, errors.ErrParentNotFound)
			}
			return fmt.Errorf("failed to check parent: %w", err)
		}
	}

	node := c.Node()
	if err := h.repo.SaveNode(ctx, c.DiagramType, node); err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}

	h.logger.Info("Node created",
		zap.String("diagram_type", string(c.DiagramType)),
		zap.String("node_id", node.ID),
		zap.String("actor_id", c.ActorID),
	)
	h.recorder.IncMutation(MutationNodeCreated)
	publishEvent(ctx, h.eventBus, h.logger, events.NewNodeCreated(c.DiagramType, node, c.ActorID))
	return nil
}

// UpdateNodeHandler handles partial node updates
type UpdateNodeHandler struct {
	repo     ports.DiagramRepository
	eventBus ports.EventBus
	recorder observability.Recorder
	logger   *zap.Logger
}

// NewUpdateNodeHandler creates a new update node handler
func NewUpdateNodeHandler(
	repo ports.DiagramRepository,
	eventBus ports.EventBus,
	recorder observability.Recorder,
	logger *zap.Logger,
) *UpdateNodeHandler {
	return &UpdateNodeHandler{
		repo:     repo,
		eventBus: eventBus,
		recorder: recorder,
		logger:   logger,
	}
}

// Handle executes the update node command
func (h *UpdateNodeHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.UpdateNodeCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	current, err := h.repo.GetNode(ctx, c.DiagramType, c.NodeID)
	if err != nil {
		return fmt.Errorf("failed to get node: %w", err)
	}

	if c.ParentID != nil && *c.ParentID != "" && *c.ParentID != current.ParentID {
		if *c.ParentID == c.NodeID {
			return errors.NewValidationError("a node cannot be its own parent")
		}
		if _, err := h.repo.GetNode(ctx, c.DiagramType, *c.ParentID); err != nil {
			if errors.IsNotFound(err) {
				return fmt.Errorf("parent %q: %w", *c.ParentID, errors.ErrParentNotFound)
			}
			return fmt.Errorf("failed to check parent: %w", err)
		}
	}

	updated := c.Apply(*current)
	if err := h.repo.SaveNode(ctx, c.DiagramType, updated); err != nil {
		return fmt.Errorf("failed to save node: %w", err)
	}

	h.logger.Info("Node updated",
		zap.String("diagram_type", string(c.DiagramType)),
		zap.String("node_id", updated.ID),
		zap.String("actor_id", c.ActorID),
	)
	h.recorder.IncMutation(MutationNodeUpdated)
	publishEvent(ctx, h.eventBus, h.logger, events.NewNodeUpdated(c.DiagramType, updated, c.ActorID))
	return nil
}

// DeleteNodeHandler handles node deletion commands
type DeleteNodeHandler struct {
	repo     ports.DiagramRepository
	eventBus ports.EventBus
	recorder observability.Recorder
	logger   *zap.Logger
}

// NewDeleteNodeHandler creates a new delete node handler
func NewDeleteNodeHandler(
	repo ports.DiagramRepository,
	eventBus ports.EventBus,
	recorder observability.Recorder,
	logger *zap.Logger,
) *DeleteNodeHandler {
	return &DeleteNodeHandler{
		repo:     repo,
		eventBus: eventBus,
		recorder: recorder,
		logger:   logger,
	}
}

// Handle executes the delete node command. Edges touching the node go with it.
func (h *DeleteNodeHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.DeleteNodeCommand)
	if !ok {
		return fmt.Errorf("unexpected command type %T", cmd)
	}

	removed, err := h.repo.DeleteNode(ctx, c.DiagramType, c.NodeID)
	if err != nil {
		if stderrors.Is(err, errors.ErrCascadeIncomplete) {
			// The node is gone; readers must not keep serving it.
			h.logger.Error("Node deleted with incomplete edge cascade",
				zap.String("diagram_type", string(c.DiagramType)),
				zap.String("node_id", c.NodeID),
				zap.Error(err),
			)
			publishEvent(ctx, h.eventBus, h.logger, events.NewNodeDeleted(c.DiagramType, c.NodeID, nil, c.ActorID))
		}
		return fmt.Errorf("failed to delete node: %w", err)
	}

	h.logger.Info("Node deleted",
		zap.String("diagram_type", string(c.DiagramType)),
		zap.String("node_id", c.NodeID),
		zap.Int("removed_edges", len(removed)),
		zap.String("actor_id", c.ActorID),
	)
	h.recorder.IncMutation(MutationNodeDeleted)
	publishEvent(ctx, h.eventBus, h.logger, events.NewNodeDeleted(c.DiagramType, c.NodeID, removed, c.ActorID))
	return nil
}
