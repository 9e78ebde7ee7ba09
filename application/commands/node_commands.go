package commands

import (
	"pulse-backend/domain/org"
	"pulse-backend/pkg/errors"
	"pulse-backend/pkg/utils"
)

// CreateNodeCommand adds a node to a diagram. NodeID is assigned by the caller.
type CreateNodeCommand struct {
	DiagramType     org.DiagramType     `json:"diagram_type" validate:"required,diagramtype"`
	NodeID          string              `json:"node_id" validate:"required,max=64"`
	ActorID         string              `json:"actor_id" validate:"required"`
	Label           string              `json:"label" validate:"required,min=1,max=200"`
	Description     string              `json:"description" validate:"max=5000"`
	NodeType        string              `json:"node_type" validate:"max=50"`
	ParentID        string              `json:"parent_id" validate:"max=64"`
	PermissionLevel org.PermissionLevel `json:"permission_level" validate:"omitempty,permissionlevel"`
}

// Validate validates the command
func (c CreateNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

// Node builds the node with defaults applied.
func (c CreateNodeCommand) Node() org.Node {
	node := org.Node{
		ID:              c.NodeID,
		Label:           c.Label,
		Description:     c.Description,
		NodeType:        c.NodeType,
		ParentID:        c.ParentID,
		PermissionLevel: c.PermissionLevel,
	}
	if node.NodeType == "" {
		node.NodeType = org.DefaultNodeType
	}
	if node.PermissionLevel == "" {
		node.PermissionLevel = org.DefaultPermissionLevel
	}
	return node
}

// UpdateNodeCommand changes the fields that are set; nil fields are kept.
type UpdateNodeCommand struct {
	DiagramType     org.DiagramType      `json:"diagram_type" validate:"required,diagramtype"`
	NodeID          string               `json:"node_id" validate:"required"`
	ActorID         string               `json:"actor_id" validate:"required"`
	Label           *string              `json:"label,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string              `json:"description,omitempty" validate:"omitempty,max=5000"`
	NodeType        *string              `json:"node_type,omitempty" validate:"omitempty,max=50"`
	ParentID        *string              `json:"parent_id,omitempty" validate:"omitempty,max=64"`
	PermissionLevel *org.PermissionLevel `json:"permission_level,omitempty" validate:"omitempty,permissionlevel"`
}

// Validate validates the command
func (c UpdateNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	if c.Label == nil && c.Description == nil && c.NodeType == nil && c.ParentID == nil && c.PermissionLevel == nil {
		return errors.NewValidationError("no fields to update")
	}
	return nil
}

// Apply returns node with the set fields changed.
func (c UpdateNodeCommand) Apply(node org.Node) org.Node {
	if c.Label != nil {
		node.Label = *c.Label
	}
	if c.Description != nil {
		node.Description = *c.Description
	}
	if c.NodeType != nil {
		node.NodeType = *c.NodeType
	}
	if c.ParentID != nil {
		node.ParentID = *c.ParentID
	}
	if c.PermissionLevel != nil {
		node.PermissionLevel = *c.PermissionLevel
	}
	return node
}

// DeleteNodeCommand removes a node and every edge touching it.
type DeleteNodeCommand struct {
	DiagramType org.DiagramType `json:"diagram_type" validate:"required,diagramtype"`
	NodeID      string          `json:"node_id" validate:"required"`
	ActorID     string          `json:"actor_id" validate:"required"`
}

// Validate validates the command
func (c DeleteNodeCommand) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}
