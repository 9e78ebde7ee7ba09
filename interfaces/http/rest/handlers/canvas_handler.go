package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"pulse-backend/application/canvas"
	"pulse-backend/application/commands"
	"pulse-backend/application/commands/bus"
	"pulse-backend/domain/org"
	apperrors "pulse-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CanvasHandler exposes canvas sessions over HTTP. Every call that starts
// a fetch or render waits for it to settle and answers with the new view.
type CanvasHandler struct {
	base
	registry   *canvas.Registry
	commandBus *bus.CommandBus
}

// NewCanvasHandler creates a new canvas handler
func NewCanvasHandler(registry *canvas.Registry, commandBus *bus.CommandBus, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *CanvasHandler {
	return &CanvasHandler{
		base:       base{errors: errorHandler, logger: logger},
		registry:   registry,
		commandBus: commandBus,
	}
}

// LoadRequest selects the diagram shown by a canvas
type LoadRequest struct {
	DiagramType org.DiagramType `json:"diagram_type"`
}

// ClickRequest is a click forwarded from the rendered diagram
type ClickRequest struct {
	Callback string `json:"callback"`
	RenderID string `json:"render_id"`
}

// ClickResponse reports what the click did
type ClickResponse struct {
	Outcome canvas.ClickOutcome `json:"outcome"`
}

func canvasError(err error) error {
	switch {
	case errors.Is(err, canvas.ErrUnmounted):
		return fmt.Errorf("%v: %w", err, apperrors.ErrCanvasNotFound)
	case errors.Is(err, canvas.ErrNoDiagram):
		return apperrors.NewValidationError(err.Error())
	}
	return err
}

func (h *CanvasHandler) lookup(r *http.Request) (*canvas.Canvas, error) {
	user, err := currentUser(r)
	if err != nil {
		return nil, err
	}
	c, ok := h.registry.Get(chi.URLParam(r, "token"), user.UserID)
	if !ok {
		return nil, apperrors.ErrCanvasNotFound
	}
	return c, nil
}

// settle waits for a started request and answers with the resulting view
func (h *CanvasHandler) settle(w http.ResponseWriter, r *http.Request, c *canvas.Canvas, status int, settled <-chan struct{}) {
	ctx := r.Context()
	if settled != nil {
		if err := c.Await(ctx, settled); err != nil {
			h.fail(w, r, canvasError(err))
			return
		}
	}
	view, err := c.View(ctx)
	if err != nil {
		h.fail(w, r, canvasError(err))
		return
	}
	h.respond(w, r, status, view)
}

// Mount handles POST /canvas. An optional diagram_type loads it right away.
func (h *CanvasHandler) Mount(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req LoadRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.DiagramType != "" {
		if _, err := org.ParseDiagramType(string(req.DiagramType)); err != nil {
			h.fail(w, r, fmt.Errorf("diagram type %q: %w", req.DiagramType, apperrors.ErrUnknownDiagramType))
			return
		}
	}

	c := h.registry.Mount(user.Viewer())

	var settled <-chan struct{}
	if req.DiagramType != "" {
		settled, err = c.Load(r.Context(), req.DiagramType)
		if err != nil {
			h.fail(w, r, canvasError(err))
			return
		}
	}
	h.settle(w, r, c, http.StatusCreated, settled)
}

// Unmount handles DELETE /canvas/{token}
func (h *CanvasHandler) Unmount(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token := chi.URLParam(r, "token")
	if !h.registry.Unmount(token, user.UserID) {
		h.fail(w, r, apperrors.ErrCanvasNotFound)
		return
	}
	h.respond(w, r, http.StatusOK, MutationResponse{ID: token, Message: "Canvas unmounted"})
}

// Get handles GET /canvas/{token}
func (h *CanvasHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.settle(w, r, c, http.StatusOK, nil)
}

// Load handles POST /canvas/{token}/load
func (h *CanvasHandler) Load(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req LoadRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := org.ParseDiagramType(string(req.DiagramType)); err != nil {
		h.fail(w, r, fmt.Errorf("diagram type %q: %w", req.DiagramType, apperrors.ErrUnknownDiagramType))
		return
	}

	settled, err := c.Load(r.Context(), req.DiagramType)
	if err != nil {
		h.fail(w, r, canvasError(err))
		return
	}
	h.settle(w, r, c, http.StatusOK, settled)
}

// Rerender handles POST /canvas/{token}/rerender
func (h *CanvasHandler) Rerender(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	settled, err := c.Rerender(r.Context())
	if err != nil {
		h.fail(w, r, canvasError(err))
		return
	}
	h.settle(w, r, c, http.StatusOK, settled)
}

// CloseDetail handles POST /canvas/{token}/close
func (h *CanvasHandler) CloseDetail(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := c.CloseDetail(r.Context()); err != nil {
		h.fail(w, r, canvasError(err))
		return
	}
	h.settle(w, r, c, http.StatusOK, nil)
}

// SVG handles GET /canvas/{token}/svg
func (h *CanvasHandler) SVG(w http.ResponseWriter, r *http.Request) {
	c, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := c.View(r.Context())
	if err != nil {
		h.fail(w, r, canvasError(err))
		return
	}
	if view.Markup == "" {
		h.fail(w, r, apperrors.NewConflictError("canvas has no rendered diagram"))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(view.DiagramType)+".svg"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(view.Markup)); err != nil {
		h.logger.Warn("Failed to write svg", zap.Error(err))
	}
}

// mutate runs fn through the canvas when its viewer may edit
func (h *CanvasHandler) mutate(w http.ResponseWriter, r *http.Request, fn canvas.MutateFunc) {
	c, err := h.lookup(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !c.Viewer().CanEdit() {
		h.fail(w, r, apperrors.ErrUserNotAuthorized)
		return
	}

	settled, err := c.Mutate(r.Context(), fn)
	if err != nil {
		h.fail(w, r, canvasError(err))
		return
	}
	h.settle(w, r, c, http.StatusOK, settled)
}

// DeleteNode handles POST /canvas/{token}/nodes/{nodeID}/delete
func (h *CanvasHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	user, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, func(ctx context.Context, dt org.DiagramType) error {
		return h.commandBus.Send(ctx, commands.DeleteNodeCommand{DiagramType: dt, NodeID: nodeID, ActorID: user.UserID})
	})
}

// UpdateNode handles POST /canvas/{token}/nodes/{nodeID}/update
func (h *CanvasHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	user, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateNodeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	h.mutate(w, r, func(ctx context.Context, dt org.DiagramType) error {
		return h.commandBus.Send(ctx, req.Command(dt, nodeID, user.UserID))
	})
}

// Click handles POST /canvas/click
func (h *CanvasHandler) Click(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req ClickRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	outcome := h.registry.Bridge().Dispatch(r.Context(), req.Callback, user.UserID, req.RenderID)
	h.respond(w, r, http.StatusOK, ClickResponse{Outcome: outcome})
}
