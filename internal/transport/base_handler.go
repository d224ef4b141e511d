package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/pkg/logger"
	"github.com/go-chi/chi"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// RequestLogger returns the logger tagged by request middleware for r.
func (h *BaseHandler) RequestLogger(r *http.Request) *slog.Logger {
	return logger.FromOr(r.Context(), h.Logger)
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResp := map[string]interface{}{
		"code":    status,
		"message": message,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		h.Logger.Error("failed to encode error response", "error", err)
	}
}

// HandleError renders an AppError with its own status code.
func (h *BaseHandler) HandleError(w http.ResponseWriter, appErr *errors.AppError) {
	status, body := appErr.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// HandleServiceError maps any service error to a response; unknown errors become 500s.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	if appErr, ok := errors.IsAppError(err); ok {
		h.HandleError(w, appErr)
		return
	}
	h.Logger.Error("unhandled service error", "error", err)
	h.HandleError(w, errors.NewInternalError("internal server error", err))
}

// DecodeJSON decodes the request body into dst, writing a 400 on failure.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.Logger.Error("invalid request body", "error", err, "path", r.URL.Path)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return false
	}
	return true
}

// PathInt64 parses a chi URL parameter as a positive int64, writing a 400 on failure.
func (h *BaseHandler) PathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.HandleError(w, errors.NewValidationFieldError(name, "invalid "+name, errors.ErrCodeValidationFailed))
		return 0, false
	}
	return id, true
}

// AdminFromContext returns the authenticated admin id. Admin actors carry a
// numeric subject; anything else is refused.
func (h *BaseHandler) AdminFromContext(w http.ResponseWriter, r *http.Request) (int64, bool) {
	actor := errors.ActorIDFromContext(r.Context())
	if actor == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return 0, false
	}
	adminID, err := strconv.ParseInt(actor, 10, 64)
	if err != nil {
		h.HandleError(w, errors.ErrUnauthorizedAccess)
		return 0, false
	}
	return adminID, true
}

// QueryInt reads an integer query parameter, falling back to def when absent or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}
