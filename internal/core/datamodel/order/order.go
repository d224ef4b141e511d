package order

import "time"

type Order struct {
	ID            int64     `gorm:"primaryKey"`
	CustomerID    string    `gorm:"column:customer_id;not null;index"`
	ProductID     int64     `gorm:"column:product_id;not null"`
	Quantity      int       `gorm:"column:quantity;not null"`
	TotalAmount   int64     `gorm:"column:total_amount;not null"`
	PaymentMethod string    `gorm:"column:payment_method;not null"`
	PaymentStatus string    `gorm:"column:payment_status;not null;default:pending"`
	OrderStatus   string    `gorm:"column:order_status;not null;default:pending"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}
