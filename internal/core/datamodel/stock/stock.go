package stock

import "time"

type Ledger struct {
	ID               int64     `gorm:"primaryKey"`
	ProductID        int64     `gorm:"column:product_id;not null;uniqueIndex"`
	CurrentQuantity  int       `gorm:"column:current_quantity;not null;default:0"`
	ReservedQuantity int       `gorm:"column:reserved_quantity;not null;default:0"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Ledger) TableName() string {
	return "stock_ledgers"
}

type History struct {
	ID               int64     `gorm:"primaryKey"`
	ProductID        int64     `gorm:"column:product_id;not null;index"`
	PreviousQuantity int       `gorm:"column:previous_quantity;not null"`
	NewQuantity      int       `gorm:"column:new_quantity;not null"`
	ActorID          string    `gorm:"column:actor_id;not null"`
	Reason           string    `gorm:"column:reason"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (History) TableName() string {
	return "stock_histories"
}
