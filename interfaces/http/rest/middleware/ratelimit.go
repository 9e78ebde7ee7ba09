package middleware

import (
	"net/http"

	"pulse-backend/pkg/auth"
	apperrors "pulse-backend/pkg/errors"

	"go.uber.org/zap"
)

// RateLimit limits requests per user once authenticated, and per client IP
// before that. Limiter errors fail open.
func RateLimit(limiter auth.RateLimiter, limit int, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	ipLimiter := auth.NewIPRateLimiter(limiter)
	userLimiter := auth.NewUserRateLimiter(limiter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				allowed bool
				err     error
			)
			if user, uerr := auth.GetUserFromContext(r.Context()); uerr == nil {
				allowed, err = userLimiter.Allow(r.Context(), user.UserID)
			} else {
				allowed, err = ipLimiter.Allow(r.Context(), getClientIP(r))
			}
			if err != nil {
				logger.Warn("Rate limiter error", zap.Error(err))
			}
			if !allowed {
				errorHandler.Handle(w, r, apperrors.NewRateLimitError(limit, "1m"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
