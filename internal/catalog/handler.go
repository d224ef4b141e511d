package catalog

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/shopbot-engine/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// ListAvailable handles GET /api/v1/catalog
func (h *Handler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.ListAvailable(r.Context())
	if err != nil {
		h.RequestLogger(r).Error("ListAvailable: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// GetProduct handles GET /api/v1/catalog/{productID}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.PathInt64(w, r, "productID")
	if !ok {
		return
	}

	product, err := h.Service.GetProduct(r.Context(), productID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, product)
}
