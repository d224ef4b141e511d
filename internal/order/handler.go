package order

import (
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/transport"
	"github.com/go-chi/chi"
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

// Checkout handles POST /api/v1/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.CustomerID == "" {
		req.CustomerID = errors.ActorIDFromContext(r.Context())
	}

	resp, err := h.Service.Checkout(r.Context(), req)
	if err != nil {
		h.RequestLogger(r).Error("Checkout: service error", "error", err, "customer_id", req.CustomerID, "product_id", req.ProductID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

// GetOrder handles GET /api/v1/orders/{orderID}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.PathInt64(w, r, "orderID")
	if !ok {
		return
	}

	o, err := h.Service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

// ListCustomerOrders handles GET /api/v1/customers/{customerID}/orders
func (h *Handler) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if customerID == "" {
		h.HandleError(w, errors.NewValidationFieldError("customerID", "customer id is required", errors.ErrCodeValidationFailed))
		return
	}

	limit := transport.QueryInt(r, "limit", 20)
	offset := transport.QueryInt(r, "offset", 0)

	orders, err := h.Service.ListCustomerOrders(r.Context(), customerID, limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"orders": orders,
		"limit":  limit,
		"offset": offset,
	})
}
