package postgres

import (
	"context"
	"time"

	adminDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/admin"
	notificationDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/notification"
	"github.com/frahmantamala/shopbot-engine/internal/notification"
	"gorm.io/gorm"
)

// NotificationRepository implements notification.RepositoryAPI using GORM
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.RepositoryAPI {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) ListActiveAdmins(ctx context.Context) ([]*adminDatamodel.Admin, error) {
	var admins []*adminDatamodel.Admin
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&admins).Error
	return admins, err
}

func (r *NotificationRepository) CreateDelivery(ctx context.Context, d *notificationDatamodel.Delivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *NotificationRepository) UpdateDelivery(ctx context.Context, d *notificationDatamodel.Delivery) error {
	return r.db.WithContext(ctx).
		Model(&notificationDatamodel.Delivery{}).
		Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"status":          d.Status,
			"attempts":        d.Attempts,
			"last_error":      d.LastError,
			"message_id":      d.MessageID,
			"next_attempt_at": d.NextAttemptAt,
		}).Error
}

func (r *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts int, now time.Time, limit int) ([]*notificationDatamodel.Delivery, error) {
	var deliveries []*notificationDatamodel.Delivery
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", notificationDatamodel.DeliveryFailed, maxAttempts).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now.UTC()).
		Order("id ASC").
		Limit(limit).
		Find(&deliveries).Error
	return deliveries, err
}

// AbandonExhausted closes out failed deliveries that can no longer be retried.
func (r *NotificationRepository) AbandonExhausted(ctx context.Context, maxAttempts int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Delivery{}).
		Where("status = ? AND attempts >= ?", notificationDatamodel.DeliveryFailed, maxAttempts).
		Updates(map[string]interface{}{
			"status":          notificationDatamodel.DeliveryAbandoned,
			"next_attempt_at": nil,
		})
	return res.RowsAffected, res.Error
}
