package stock

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service          ServiceAPI
	defaultThreshold int
}

func NewHandler(service ServiceAPI, defaultThreshold int, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:      transport.NewBaseHandler(lg),
		Service:          service,
		defaultThreshold: defaultThreshold,
	}
}

// GetStock handles GET /api/v1/products/{productID}/stock
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.PathInt64(w, r, "productID")
	if !ok {
		return
	}

	level, err := h.Service.GetStock(r.Context(), productID)
	if err != nil {
		h.RequestLogger(r).Error("GetStock: service error", "error", err, "product_id", productID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, level)
}

// SetQuantity handles PUT /api/v1/products/{productID}/stock
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	actorID := errors.ActorIDFromContext(r.Context())
	if actorID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	productID, ok := h.PathInt64(w, r, "productID")
	if !ok {
		return
	}

	var req SetQuantityRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	change, err := h.Service.UpdateQuantity(r.Context(), nil, productID, *req.Quantity, AdminActor(actorID))
	if err != nil {
		h.RequestLogger(r).Error("SetQuantity: service error", "error", err, "product_id", productID, "actor_id", actorID)
		h.HandleServiceError(w, err)
		return
	}

	h.RequestLogger(r).Info("SetQuantity: stock updated",
		"product_id", productID,
		"previous_quantity", change.PreviousQuantity,
		"new_quantity", change.NewQuantity,
		"actor_id", actorID)

	h.WriteJSON(w, http.StatusOK, change)
}

// GetHistory handles GET /api/v1/products/{productID}/stock/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.PathInt64(w, r, "productID")
	if !ok {
		return
	}

	entries, err := h.Service.History(r.Context(), productID, transport.QueryInt(r, "limit", DefaultHistoryN))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"product_id": productID,
		"history":    entries,
	})
}

// ListLowStock handles GET /api/v1/stock/low
func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := transport.QueryInt(r, "threshold", h.defaultThreshold)

	levels, err := h.Service.ListLowStock(r.Context(), threshold)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"threshold": threshold,
		"products":  levels,
	})
}
