package notification

import (
	"log/slog"
	"net/http"
	"strings"

	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/transport"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Store ReadStatusStore
}

func NewHandler(store ReadStatusStore, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Store:       store,
	}
}

// MarkRead handles POST /api/v1/notifications/{messageID}/read
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.AdminFromContext(w, r)
	if !ok {
		return
	}

	messageID, ok := h.messageID(w, r)
	if !ok {
		return
	}

	status, err := h.Store.MarkRead(r.Context(), messageID, adminID)
	if err != nil {
		h.RequestLogger(r).Error("MarkRead: store error", "error", err, "message_id", messageID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, status)
}

// GetReadStatus handles GET /api/v1/notifications/{messageID}
func (h *Handler) GetReadStatus(w http.ResponseWriter, r *http.Request) {
	messageID, ok := h.messageID(w, r)
	if !ok {
		return
	}

	status, err := h.Store.Get(r.Context(), messageID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) messageID(w http.ResponseWriter, r *http.Request) (string, bool) {
	messageID := strings.TrimSpace(chi.URLParam(r, "messageID"))
	if messageID == "" {
		h.HandleError(w, errors.NewValidationFieldError("messageID", "message id is required", errors.ErrCodeValidationFailed))
		return "", false
	}
	return messageID, true
}
