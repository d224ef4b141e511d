package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/chattransport"
	adminDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/admin"
	notificationDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/notification"
	"github.com/frahmantamala/shopbot-engine/internal/metrics"
	"gorm.io/datatypes"
)

const (
	DefaultDeliveryTimeout = 5 * time.Second
	retryBackoff           = 30 * time.Second
)

type RepositoryAPI interface {
	ListActiveAdmins(ctx context.Context) ([]*adminDatamodel.Admin, error)
	CreateDelivery(ctx context.Context, d *notificationDatamodel.Delivery) error
	UpdateDelivery(ctx context.Context, d *notificationDatamodel.Delivery) error
	// ListRetryable returns failed deliveries under maxAttempts that are due at now.
	ListRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int) ([]*notificationDatamodel.Delivery, error)
	AbandonExhausted(ctx context.Context, maxAttempts int) (int64, error)
}

// Sender is satisfied by *chattransport.Client.
type Sender interface {
	Send(ctx context.Context, chatID string, msg chattransport.Message) (string, error)
}

type DispatcherAPI interface {
	SendToAllAdmins(ctx context.Context, eventType string, data map[string]interface{}) ([]Result, error)
}

type Dispatcher struct {
	repo    RepositoryAPI
	sender  Sender
	timeout time.Duration
	metrics *metrics.EngineMetrics
	logger  *slog.Logger
}

func NewDispatcher(repo RepositoryAPI, sender Sender, timeout time.Duration, m *metrics.EngineMetrics, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Dispatcher{
		repo:    repo,
		sender:  sender,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

type recipient struct {
	admin  *Admin
	result Result
}

// SendToAllAdmins delivers one message per opted-in admin. Sends run
// concurrently and each is bounded by the delivery timeout; a slow or failing
// recipient only affects its own Result. Every attempt is persisted.
func (d *Dispatcher) SendToAllAdmins(ctx context.Context, eventType string, data map[string]interface{}) ([]Result, error) {
	msg, err := Format(eventType, data)
	if err != nil {
		return nil, err
	}

	rows, err := d.repo.ListActiveAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}

	recipients := make([]*recipient, 0, len(rows))
	for _, row := range rows {
		admin := AdminFromDataModel(row)
		if !admin.Wants(eventType) {
			continue
		}
		recipients = append(recipients, &recipient{admin: admin, result: Result{AdminID: admin.ID}})
	}

	if len(recipients) == 0 {
		d.logger.Debug("no admins opted in", "event_type", eventType)
		return []Result{}, nil
	}

	var wg sync.WaitGroup
	for _, rc := range recipients {
		wg.Add(1)
		go func(rc *recipient) {
			defer wg.Done()
			d.deliver(ctx, rc, msg)
		}(rc)
	}
	wg.Wait()

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	now := time.Now().UTC()
	results := make([]Result, 0, len(recipients))
	sent := 0
	for _, rc := range recipients {
		results = append(results, rc.result)
		d.metrics.RecordNotification(eventType, rc.result.Success)
		if rc.result.Success {
			sent++
		}

		if err := d.repo.CreateDelivery(ctx, newDelivery(rc, eventType, payload, now)); err != nil {
			d.logger.Error("failed to record notification delivery",
				"error", err,
				"admin_id", rc.admin.ID,
				"event_type", eventType)
		}
	}

	d.logger.Info("admin notification dispatched",
		"event_type", eventType,
		"recipients", len(recipients),
		"sent", sent,
		"failed", len(recipients)-sent)

	return results, nil
}

func (d *Dispatcher) deliver(ctx context.Context, rc *recipient, msg chattransport.Message) {
	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	messageID, err := d.sender.Send(sctx, rc.admin.ChatID, msg)
	if err != nil {
		rc.result.Error = err.Error()
		d.logger.Warn("admin notification failed",
			"admin_id", rc.admin.ID,
			"chat_id", rc.admin.ChatID,
			"error", err)
		return
	}
	rc.result.Success = true
	rc.result.MessageID = messageID
}

func newDelivery(rc *recipient, eventType string, payload []byte, now time.Time) *notificationDatamodel.Delivery {
	delivery := &notificationDatamodel.Delivery{
		AdminID:   rc.admin.ID,
		ChatID:    rc.admin.ChatID,
		EventType: eventType,
		Payload:   datatypes.JSON(payload),
		Attempts:  1,
	}

	if rc.result.Success {
		delivery.Status = notificationDatamodel.DeliverySent
		messageID := rc.result.MessageID
		delivery.MessageID = &messageID
		return delivery
	}

	delivery.Status = notificationDatamodel.DeliveryFailed
	lastErr := rc.result.Error
	delivery.LastError = &lastErr
	next := now.Add(retryBackoff)
	delivery.NextAttemptAt = &next
	return delivery
}
