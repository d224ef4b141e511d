package notification

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/shopbot-engine/internal/chattransport"
)

// Enqueuer is satisfied by *chattransport.Client.
type Enqueuer interface {
	Enqueue(job chattransport.Job) error
}

// CustomerNotifier tells the paying customer how their payment ended. Sends
// are queued; nothing here waits on the transport.
type CustomerNotifier struct {
	queue  Enqueuer
	logger *slog.Logger
}

func NewCustomerNotifier(queue Enqueuer, logger *slog.Logger) *CustomerNotifier {
	return &CustomerNotifier{queue: queue, logger: logger}
}

func (c *CustomerNotifier) PaymentVerified(ctx context.Context, chatID string, data map[string]interface{}) error {
	return c.enqueue(ctx, chatID, "customer_payment_verified", FormatCustomerVerified(data))
}

func (c *CustomerNotifier) PaymentFailed(ctx context.Context, chatID string, data map[string]interface{}) error {
	return c.enqueue(ctx, chatID, "customer_payment_failed", FormatCustomerFailed(data))
}

func (c *CustomerNotifier) enqueue(_ context.Context, chatID, label string, msg chattransport.Message) error {
	if chatID == "" {
		c.logger.Warn("customer notification skipped: no chat id", "label", label)
		return nil
	}
	return c.queue.Enqueue(chattransport.Job{ChatID: chatID, Message: msg, Label: label})
}
