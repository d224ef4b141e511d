package notification

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DeliverySent      = "sent"
	DeliveryFailed    = "failed"
	DeliveryAbandoned = "abandoned"
)

// Delivery is the persisted outcome of one message sent to one admin.
type Delivery struct {
	ID            int64          `gorm:"primaryKey"`
	AdminID       int64          `gorm:"column:admin_id;not null;index"`
	ChatID        string         `gorm:"column:chat_id;not null"`
	EventType     string         `gorm:"column:event_type;not null"`
	Payload       datatypes.JSON `gorm:"column:payload"`
	Status        string         `gorm:"column:status;not null;index"`
	Attempts      int            `gorm:"column:attempts;not null;default:0"`
	LastError     *string        `gorm:"column:last_error"`
	MessageID     *string        `gorm:"column:message_id"`
	NextAttemptAt *time.Time     `gorm:"column:next_attempt_at"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Delivery) TableName() string {
	return "notification_deliveries"
}
