package handlers

import (
	"errors"
	"net/http"
	"time"

	"pulse-backend/domain/org"
	"pulse-backend/pkg/auth"
	apperrors "pulse-backend/pkg/errors"
	"pulse-backend/pkg/utils"

	"go.uber.org/zap"
)

// AuthHandler exchanges credentials for session tokens
type AuthHandler struct {
	base
	users *auth.UserStore
	jwt   *auth.JWTService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *auth.UserStore, jwt *auth.JWTService, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		base:  base{errors: errorHandler, logger: logger},
		users: users,
		jwt:   jwt,
	}
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// LoginResponse carries the session token and what the role may see
type LoginResponse struct {
	Token         string                `json:"token"`
	ExpiresAt     time.Time             `json:"expires_at"`
	UserID        string                `json:"user_id"`
	Role          org.Role              `json:"role"`
	AllowedLevels []org.PermissionLevel `json:"allowed_levels"`
	CanEdit       bool                  `json:"can_edit"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.fail(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Info("Login rejected", zap.String("username", req.Username))
			h.fail(w, r, apperrors.ErrInvalidCredentials)
			return
		}
		h.fail(w, r, err)
		return
	}

	token, expiresAt, err := h.jwt.GenerateToken(user.Username, user.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	viewer := org.NewViewer(user.Username, user.Role)
	h.respond(w, r, http.StatusOK, LoginResponse{
		Token:         token,
		ExpiresAt:     expiresAt,
		UserID:        user.Username,
		Role:          user.Role,
		AllowedLevels: org.AllowedLevels(user.Role),
		CanEdit:       viewer.CanEdit(),
	})
}
