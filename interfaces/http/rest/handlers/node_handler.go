package handlers

import (
	"net/http"

	"pulse-backend/application/commands"
	"pulse-backend/application/commands/bus"
	"pulse-backend/domain/org"
	apperrors "pulse-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	base
	commandBus *bus.CommandBus
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(commandBus *bus.CommandBus, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		base:       base{errors: errorHandler, logger: logger},
		commandBus: commandBus,
	}
}

// CreateNodeRequest represents the request body for creating a node.
// ID is generated when omitted.
type CreateNodeRequest struct {
	ID              string              `json:"id,omitempty"`
	Label           string              `json:"label"`
	Description     string              `json:"description,omitempty"`
	NodeType        string              `json:"node_type,omitempty"`
	ParentID        string              `json:"parent_id,omitempty"`
	PermissionLevel org.PermissionLevel `json:"permission_level,omitempty"`
}

// UpdateNodeRequest represents the request body for updating a node
type UpdateNodeRequest struct {
	Label           *string              `json:"label,omitempty"`
	Description     *string              `json:"description,omitempty"`
	NodeType        *string              `json:"node_type,omitempty"`
	ParentID        *string              `json:"parent_id,omitempty"`
	PermissionLevel *org.PermissionLevel `json:"permission_level,omitempty"`
}

// Command builds the update command for a node
func (req UpdateNodeRequest) Command(dt org.DiagramType, nodeID, actorID string) commands.UpdateNodeCommand {
	return commands.UpdateNodeCommand{
		DiagramType:     dt,
		NodeID:          nodeID,
		ActorID:         actorID,
		Label:           req.Label,
		Description:     req.Description,
		NodeType:        req.NodeType,
		ParentID:        req.ParentID,
		PermissionLevel: req.PermissionLevel,
	}
}

// MutationResponse acknowledges a create, update or delete
type MutationResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// CreateNode handles POST /diagrams/{type}/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dt, err := diagramTypeParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req CreateNodeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	cmd := commands.CreateNodeCommand{
		DiagramType:     dt,
		NodeID:          req.ID,
		ActorID:         user.UserID,
		Label:           req.Label,
		Description:     req.Description,
		NodeType:        req.NodeType,
		ParentID:        req.ParentID,
		PermissionLevel: req.PermissionLevel,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusCreated, MutationResponse{ID: req.ID, Message: "Node created"})
}

// UpdateNode handles PATCH /diagrams/{type}/nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dt, err := diagramTypeParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req UpdateNodeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	nodeID := chi.URLParam(r, "nodeID")
	if err := h.commandBus.Send(r.Context(), req.Command(dt, nodeID, user.UserID)); err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, MutationResponse{ID: nodeID, Message: "Node updated"})
}

// DeleteNode handles DELETE /diagrams/{type}/nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dt, err := diagramTypeParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	nodeID := chi.URLParam(r, "nodeID")
	cmd := commands.DeleteNodeCommand{DiagramType: dt, NodeID: nodeID, ActorID: user.UserID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, MutationResponse{ID: nodeID, Message: "Node deleted"})
}
