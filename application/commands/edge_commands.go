package commands

import (
	"pulse-backend/domain/org"
	"pulse-backend/pkg/errors"
	"pulse-backend/pkg/utils"
)

// CreateEdgeCommand connects two existing nodes of a diagram.
type CreateEdgeCommand struct {
	DiagramType org.DiagramType `json:"diagram_type" validate:"required,diagramtype"`
	EdgeID      string          `json:"edge_id" validate:"required,max=64"`
	ActorID     string          `json:"actor_id" validate:"required"`
	SourceID    string          `json:"source_id" validate:"required"`
	TargetID    string          `json:"target_id" validate:"required"`
	Label       string          `json:"label" validate:"max=200"`
	EdgeType    org.EdgeType    `json:"edge_type" validate:"omitempty,edgetype"`
}

// Validate validates the command
func (c CreateEdgeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// Edge builds the edge with defaults applied.
func (c CreateEdgeCommand) Edge() org.Edge {
	edge := org.Edge{
		ID:       c.EdgeID,
		SourceID: c.SourceID,
		TargetID: c.TargetID,
		Label:    c.Label,
		EdgeType: c.EdgeType,
	}
	if edge.EdgeType == "" {
		edge.EdgeType = org.DefaultEdgeType
	}
	return edge
}

// DeleteEdgeCommand removes one edge.
type DeleteEdgeCommand struct {
	DiagramType org.DiagramType `json:"diagram_type" validate:"required,diagramtype"`
	EdgeID      string          `json:"edge_id" validate:"required"`
	ActorID     string          `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (c DeleteEdgeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}
