package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/shopbot-engine/internal/core/events"
	"github.com/frahmantamala/shopbot-engine/internal/payment"
)

// EventHandler turns commerce events into admin and customer messages.
type EventHandler struct {
	dispatcher DispatcherAPI
	customers  *CustomerNotifier
	logger     *slog.Logger
}

func NewEventHandler(dispatcher DispatcherAPI, customers *CustomerNotifier, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		dispatcher: dispatcher,
		customers:  customers,
		logger:     logger,
	}
}

func (h *EventHandler) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeOrderPlaced, h.HandleOrderPlaced)
	bus.Subscribe(events.EventTypePaymentProofSubmitted, h.HandleProofSubmitted)
	bus.Subscribe(events.EventTypePaymentVerified, h.HandlePaymentVerified)
	bus.Subscribe(events.EventTypePaymentFailed, h.HandlePaymentFailed)
}

func (h *EventHandler) HandleOrderPlaced(ctx context.Context, event events.Event) error {
	return h.notifyAdmins(ctx, TypeNewOrder, event)
}

func (h *EventHandler) HandleProofSubmitted(ctx context.Context, event events.Event) error {
	return h.notifyAdmins(ctx, TypePaymentProof, event)
}

func (h *EventHandler) HandlePaymentVerified(ctx context.Context, event events.Event) error {
	verified, ok := event.(*events.PaymentVerifiedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}

	adminType := TypeQRISVerified
	if verified.VerificationMethod == payment.VerificationManual {
		adminType = TypeManualVerified
	}

	if err := h.customers.PaymentVerified(ctx, verified.CustomerID, verified.Data); err != nil {
		h.logger.Warn("customer verification notice not queued", "error", err, "order_id", verified.OrderID)
	}
	return h.notifyAdmins(ctx, adminType, event)
}

func (h *EventHandler) HandlePaymentFailed(ctx context.Context, event events.Event) error {
	failed, ok := event.(*events.PaymentFailedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}

	if err := h.customers.PaymentFailed(ctx, failed.CustomerID, failed.Data); err != nil {
		h.logger.Warn("customer failure notice not queued", "error", err, "order_id", failed.OrderID)
	}
	return h.notifyAdmins(ctx, TypePaymentFailed, event)
}

func (h *EventHandler) notifyAdmins(ctx context.Context, notificationType string, event events.Event) error {
	data, _ := event.Payload().(map[string]interface{})

	results, err := h.dispatcher.SendToAllAdmins(ctx, notificationType, data)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", notificationType, err)
	}

	h.logger.Debug("event forwarded to admins",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"notification_type", notificationType,
		"recipients", len(results))
	return nil
}
