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

// EdgeHandler handles edge-related HTTP requests
type EdgeHandler struct {
	base
	commandBus *bus.CommandBus
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(commandBus *bus.CommandBus, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{
		base:       base{errors: errorHandler, logger: logger},
		commandBus: commandBus,
	}
}

// CreateEdgeRequest represents the request body for creating an edge
type CreateEdgeRequest struct {
	ID       string       `json:"id,omitempty"`
	SourceID string       `json:"source_id"`
	TargetID string       `json:"target_id"`
	Label    string       `json:"label,omitempty"`
	EdgeType org.EdgeType `json:"edge_type,omitempty"`
}

// CreateEdge handles POST /diagrams/{type}/edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
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

	var req CreateEdgeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	cmd := commands.CreateEdgeCommand{
		DiagramType: dt,
		EdgeID:      req.ID,
		ActorID:     user.UserID,
		SourceID:    req.SourceID,
		TargetID:    req.TargetID,
		Label:       req.Label,
		EdgeType:    req.EdgeType,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusCreated, MutationResponse{ID: req.ID, Message: "Edge created"})
}

// DeleteEdge handles DELETE /diagrams/{type}/edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
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

	edgeID := chi.URLParam(r, "edgeID")
	cmd := commands.DeleteEdgeCommand{DiagramType: dt, EdgeID: edgeID, ActorID: user.UserID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.fail(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, MutationResponse{ID: edgeID, Message: "Edge deleted"})
}
