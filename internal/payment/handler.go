package payment

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

// GetPayment handles GET /api/v1/payments/{paymentID}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := h.PathInt64(w, r, "paymentID")
	if !ok {
		return
	}

	p, err := h.Service.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

// GetOrderPayment handles GET /api/v1/orders/{orderID}/payment
func (h *Handler) GetOrderPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.PathInt64(w, r, "orderID")
	if !ok {
		return
	}

	p, err := h.Service.GetPaymentByOrderID(r.Context(), orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

// VerifyPayment handles POST /api/v1/payments/{paymentID}/verify
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.AdminFromContext(w, r)
	if !ok {
		return
	}

	paymentID, ok := h.PathInt64(w, r, "paymentID")
	if !ok {
		return
	}

	p, err := h.Service.VerifyManual(r.Context(), paymentID, adminID)
	if err != nil {
		h.RequestLogger(r).Error("VerifyPayment: service error", "error", err, "payment_id", paymentID, "admin_id", adminID)
		h.HandleServiceError(w, err)
		return
	}

	h.RequestLogger(r).Info("VerifyPayment: payment verified", "payment_id", p.ID, "order_id", p.OrderID, "admin_id", adminID)
	h.WriteJSON(w, http.StatusOK, p)
}

// RejectPayment handles POST /api/v1/payments/{paymentID}/fail
func (h *Handler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.AdminFromContext(w, r)
	if !ok {
		return
	}

	paymentID, ok := h.PathInt64(w, r, "paymentID")
	if !ok {
		return
	}

	var req FailRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	p, err := h.Service.MarkFailed(r.Context(), paymentID, req.Reason)
	if err != nil {
		h.RequestLogger(r).Error("RejectPayment: service error", "error", err, "payment_id", paymentID, "admin_id", adminID)
		h.HandleServiceError(w, err)
		return
	}

	h.RequestLogger(r).Info("RejectPayment: payment rejected", "payment_id", p.ID, "admin_id", adminID)
	h.WriteJSON(w, http.StatusOK, p)
}

// SubmitProof handles POST /api/v1/payments/{paymentID}/proof
func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := h.PathInt64(w, r, "paymentID")
	if !ok {
		return
	}

	var req ProofRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	p, err := h.Service.AttachProof(r.Context(), paymentID, req.ProofReference)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

