package payment

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/shopbot-engine/internal/transport"
)

// WebhookHandler receives gateway callbacks whose signature was already checked upstream.
type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
	logger         *slog.Logger
}

func NewWebhookHandler(paymentService ServiceAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    transport.NewBaseHandler(logger),
		paymentService: paymentService,
		logger:         logger,
	}
}

// HandlePaymentCallback handles POST /api/v1/payment/callback
func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	h.logger.Info("received payment callback",
		"order_id", req.OrderID,
		"transaction_id", req.TransactionID,
		"status", req.Status,
		"amount", req.Amount)

	if verr := req.Validate(); verr != nil {
		h.HandleError(w, verr)
		return
	}

	var (
		p   *Payment
		err error
	)
	switch MapGatewayStatus(req.Status) {
	case StatusVerified:
		p, err = h.paymentService.VerifyAutomatic(r.Context(), req.OrderID, req.TransactionID)
	case StatusFailed:
		p, err = h.failByOrder(r, req)
	default:
		h.logger.Info("ignoring non-final gateway status", "order_id", req.OrderID, "status", req.Status)
		h.WriteJSON(w, http.StatusAccepted, CallbackResponse{Status: "ignored", Message: "status is not final"})
		return
	}
	if err != nil {
		h.logger.Error("failed to process payment callback",
			"error", err,
			"order_id", req.OrderID,
			"status", req.Status)
		h.HandleServiceError(w, err)
		return
	}

	h.logger.Info("payment callback processed",
		"payment_id", p.ID,
		"order_id", req.OrderID,
		"payment_status", p.Status)

	h.WriteJSON(w, http.StatusOK, CallbackResponse{
		Status:        "success",
		Message:       "callback processed successfully",
		PaymentStatus: p.Status,
	})
}

func (h *WebhookHandler) failByOrder(r *http.Request, req CallbackRequest) (*Payment, error) {
	existing, err := h.paymentService.GetPaymentByOrderID(r.Context(), req.OrderID)
	if err != nil {
		return nil, err
	}
	reason := req.FailureReason
	if reason == "" {
		reason = "gateway reported " + req.Status
	}
	return h.paymentService.MarkFailed(r.Context(), existing.ID, reason)
}
