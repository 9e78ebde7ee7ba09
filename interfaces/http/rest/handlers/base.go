package handlers

import (
	"fmt"
	"net/http"

	"pulse-backend/domain/org"
	"pulse-backend/pkg/auth"
	"pulse-backend/pkg/common"
	apperrors "pulse-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// base carries what every handler needs to answer a request
type base struct {
	errors *apperrors.ErrorHandler
	logger *zap.Logger
}

func (b base) respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := common.RespondJSON(w, r, status, data); err != nil {
		b.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (b base) fail(w http.ResponseWriter, r *http.Request, err error) {
	b.errors.Handle(w, r, err)
}

func (b base) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := common.ParseJSONBody(w, r, v); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

func currentUser(r *http.Request) (*auth.UserContext, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("Unauthorized")
	}
	return user, nil
}

func diagramTypeParam(r *http.Request) (org.DiagramType, error) {
	raw := chi.URLParam(r, "type")
	dt, err := org.ParseDiagramType(raw)
	if err != nil {
		return "", fmt.Errorf("diagram type %q: %w", raw, apperrors.ErrUnknownDiagramType)
	}
	return dt, nil
}
