package handlers

import (
	"net/http"

	"pulse-backend/application/queries"
	querybus "pulse-backend/application/queries/bus"
	apperrors "pulse-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DiagramHandler serves redacted diagrams and nodes
type DiagramHandler struct {
	base
	queryBus *querybus.QueryBus
}

// NewDiagramHandler creates a new diagram handler
func NewDiagramHandler(queryBus *querybus.QueryBus, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *DiagramHandler {
	return &DiagramHandler{
		base:     base{errors: errorHandler, logger: logger},
		queryBus: queryBus,
	}
}

// GetDiagram handles GET /diagrams/{type}
func (h *DiagramHandler) GetDiagram(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.queryBus.Ask(r.Context(), queries.GetDiagramQuery{DiagramType: dt, Role: user.Role})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, result)
}

// GetRawDiagram handles GET /diagrams/{type}/raw
func (h *DiagramHandler) GetRawDiagram(w http.ResponseWriter, r *http.Request) {
	dt, err := diagramTypeParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetRawDiagramQuery{DiagramType: dt})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, result)
}

// GetNode handles GET /diagrams/{type}/nodes/{nodeID}
func (h *DiagramHandler) GetNode(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.queryBus.Ask(r.Context(), queries.GetNodeQuery{
		DiagramType: dt,
		NodeID:      chi.URLParam(r, "nodeID"),
		Role:        user.Role,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, result)
}
