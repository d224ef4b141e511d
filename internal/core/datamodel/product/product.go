package product

import "time"

const (
	StatusAvailable    = "available"
	StatusOutOfStock   = "out_of_stock"
	StatusDiscontinued = "discontinued"
)

type Product struct {
	ID                 int64     `gorm:"primaryKey"`
	Name               string    `gorm:"column:name;not null"`
	Description        string    `gorm:"column:description"`
	PriceIDR           int64     `gorm:"column:price_idr;not null"`
	StockQuantity      int       `gorm:"column:stock_quantity;not null;default:0"`
	AvailabilityStatus string    `gorm:"column:availability_status;not null;default:available;index"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
