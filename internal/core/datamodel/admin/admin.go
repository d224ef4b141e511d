package admin

import (
	"time"

	"gorm.io/datatypes"
)

type Admin struct {
	ID                   int64                       `gorm:"primaryKey"`
	ChatID               string                      `gorm:"column:chat_id;not null;uniqueIndex"`
	Name                 string                      `gorm:"column:name;not null"`
	IsActive             bool                        `gorm:"column:is_active;not null"`
	NotificationsEnabled bool                        `gorm:"column:notifications_enabled;not null"`
	MutedEvents          datatypes.JSONSlice[string] `gorm:"column:muted_events"`
	CreatedAt            time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (Admin) TableName() string {
	return "admins"
}
