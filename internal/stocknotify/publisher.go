// Package stocknotify broadcasts committed stock ledger changes over a Redis
// pub/sub channel. Delivery is at-most-once to whichever subscribers are live.
package stocknotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/core/sideeffect"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultChannel        = "stock_updates"
	DefaultPublishTimeout = 500 * time.Millisecond

	sideEffectName = "stock_publish"
)

// Event is the wire format on the channel.
type Event struct {
	ProductID        int64     `json:"productId"`
	PreviousQuantity int       `json:"previousQuantity"`
	NewQuantity      int       `json:"newQuantity"`
	ActorID          string    `json:"actorId"`
	Timestamp        time.Time `json:"timestamp"`
}

type Publisher struct {
	rdb     redis.UniversalClient
	channel string
	timeout time.Duration
	logger  *slog.Logger
}

func NewPublisher(rdb redis.UniversalClient, channel string, timeout time.Duration, logger *slog.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Publisher{
		rdb:     rdb,
		channel: channel,
		timeout: timeout,
		logger:  logger,
	}
}

// NotifyStockUpdate publishes one event. It is bounded by the publish timeout
// and detached from the caller's cancellation, since the change it reports is
// already committed.
func (p *Publisher) NotifyStockUpdate(ctx context.Context, productID int64, previousQty, newQty int, actorID string) sideeffect.Result {
	return sideeffect.Run(sideEffectName, func() error {
		payload, err := json.Marshal(Event{
			ProductID:        productID,
			PreviousQuantity: previousQty,
			NewQuantity:      newQty,
			ActorID:          actorID,
			Timestamp:        time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("encode stock event: %w", err)
		}

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		receivers, err := p.rdb.Publish(pctx, p.channel, payload).Result()
		if err != nil {
			return fmt.Errorf("publish to %s: %w", p.channel, err)
		}

		p.logger.Debug("stock update published",
			"channel", p.channel,
			"product_id", productID,
			"new_quantity", newQty,
			"receivers", receivers)
		return nil
	})
}
