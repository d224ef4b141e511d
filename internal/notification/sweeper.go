package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/chattransport"
	notificationDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/notification"
	"github.com/frahmantamala/shopbot-engine/internal/metrics"
	"github.com/hibiken/asynq"
)

const (
	TaskRetryDeliveries = "notification:retry_deliveries"

	DefaultMaxAttempts = 3
	sweepBatchSize     = 100
)

type SweepStats struct {
	Scanned   int `json:"scanned"`
	Resent    int `json:"resent"`
	Failed    int `json:"failed"`
	Abandoned int `json:"abandoned"`
}

// Sweeper re-sends failed admin deliveries. A delivery is abandoned once it
// reaches maxAttempts.
type Sweeper struct {
	repo        RepositoryAPI
	sender      Sender
	timeout     time.Duration
	maxAttempts int
	metrics     *metrics.EngineMetrics
	logger      *slog.Logger
}

func NewSweeper(repo RepositoryAPI, sender Sender, timeout time.Duration, maxAttempts int, m *metrics.EngineMetrics, logger *slog.Logger) *Sweeper {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Sweeper{
		repo:        repo,
		sender:      sender,
		timeout:     timeout,
		maxAttempts: maxAttempts,
		metrics:     m,
		logger:      logger,
	}
}

func NewRetryDeliveriesTask() *asynq.Task {
	return asynq.NewTask(TaskRetryDeliveries, nil, asynq.MaxRetry(0), asynq.Timeout(2*time.Minute))
}

func (s *Sweeper) RegisterTasks(mux *asynq.ServeMux) {
	mux.Handle(TaskRetryDeliveries, s)
}

// ProcessTask implements asynq.Handler.
func (s *Sweeper) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	_, err := s.Sweep(ctx)
	return err
}

func (s *Sweeper) Sweep(ctx context.Context) (SweepStats, error) {
	return s.SweepAt(ctx, time.Now().UTC())
}

func (s *Sweeper) SweepAt(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats

	exhausted, err := s.repo.AbandonExhausted(ctx, s.maxAttempts)
	if err != nil {
		return stats, err
	}
	stats.Abandoned = int(exhausted)

	deliveries, err := s.repo.ListRetryable(ctx, s.maxAttempts, now, sweepBatchSize)
	if err != nil {
		return stats, err
	}
	stats.Scanned = len(deliveries)

	for _, delivery := range deliveries {
		if ctx.Err() != nil {
			break
		}

		s.retry(ctx, delivery, now)
		switch delivery.Status {
		case notificationDatamodel.DeliverySent:
			stats.Resent++
		case notificationDatamodel.DeliveryAbandoned:
			stats.Abandoned++
		default:
			stats.Failed++
		}

		if err := s.repo.UpdateDelivery(ctx, delivery); err != nil {
			s.logger.Error("failed to update notification delivery", "error", err, "delivery_id", delivery.ID)
		}
	}

	if stats.Scanned > 0 || stats.Abandoned > 0 {
		s.logger.Info("notification sweep finished",
			"scanned", stats.Scanned,
			"resent", stats.Resent,
			"failed", stats.Failed,
			"abandoned", stats.Abandoned)
	}
	return stats, nil
}

func (s *Sweeper) retry(ctx context.Context, delivery *notificationDatamodel.Delivery, now time.Time) {
	delivery.Attempts++

	var msg chattransport.Message
	if err := json.Unmarshal(delivery.Payload, &msg); err != nil {
		s.fail(delivery, "undecodable payload: "+err.Error(), now, true)
		return
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messageID, err := s.sender.Send(sctx, delivery.ChatID, msg)
	s.metrics.RecordNotification(delivery.EventType, err == nil)
	if err != nil {
		s.fail(delivery, err.Error(), now, delivery.Attempts >= s.maxAttempts)
		return
	}

	delivery.Status = notificationDatamodel.DeliverySent
	delivery.MessageID = &messageID
	delivery.LastError = nil
	delivery.NextAttemptAt = nil
}

func (s *Sweeper) fail(delivery *notificationDatamodel.Delivery, reason string, now time.Time, abandon bool) {
	delivery.LastError = &reason
	if abandon {
		delivery.Status = notificationDatamodel.DeliveryAbandoned
		delivery.NextAttemptAt = nil
		s.logger.Warn("notification delivery abandoned",
			"delivery_id", delivery.ID,
			"admin_id", delivery.AdminID,
			"attempts", delivery.Attempts,
			"error", reason)
		return
	}

	delivery.Status = notificationDatamodel.DeliveryFailed
	next := now.Add(time.Duration(delivery.Attempts) * retryBackoff)
	delivery.NextAttemptAt = &next
}
