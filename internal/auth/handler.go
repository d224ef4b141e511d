package auth

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/transport"
	"github.com/frahmantamala/shopbot-engine/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Validator TokenValidator
}

func NewHandler(validator TokenValidator, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Validator:   validator,
	}
}

// AuthMiddleware requires a valid bearer token and puts the actor id and role
// on the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := transport.ExtractTokenFromHeader(r)
		if token == "" {
			h.RequestLogger(r).Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			h.HandleError(w, errors.NewUnauthorizedError("missing authorization token", errors.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Validator.ValidateToken(token)
		if err != nil {
			h.RequestLogger(r).Warn("token validation failed", "error", err, "path", r.URL.Path)
			h.HandleServiceError(w, err)
			return
		}

		ctx := errors.ContextWithActorID(r.Context(), claims.Subject)
		ctx = ContextWithRole(ctx, claims.Role)
		ctx = logger.With(ctx, "actor_id", claims.Subject, "actor_role", claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects requests whose actor role is not one of roles.
func (h *Handler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			h.RequestLogger(r).Warn("access denied: role not permitted",
				"role", role,
				"required_roles", roles)
			h.HandleError(w, errors.NewForbiddenError("insufficient permissions", errors.ErrCodeUnauthorizedAccess))
		})
	}
}
