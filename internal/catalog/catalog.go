package catalog

import (
	"time"

	productDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
)

// Product is the customer-facing view of a catalog entry. Quantity comes
// from the stock ledger, not the mirrored product column.
type Product struct {
	ID                 int64     `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Description        string    `json:"description" db:"description"`
	PriceIDR           int64     `json:"price_idr" db:"price_idr"`
	StockQuantity      int       `json:"stock_quantity" db:"stock_quantity"`
	AvailabilityStatus string    `json:"availability_status" db:"availability_status"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

func (p *Product) Available() bool {
	return p.AvailabilityStatus == productDatamodel.StatusAvailable && p.StockQuantity > 0
}

// SyncResult reports what the synchronizer saw and did for one product.
type SyncResult struct {
	ProductID      int64
	Quantity       int
	PreviousStatus string
	Status         string
}

func (r *SyncResult) Flipped() bool {
	return r.PreviousStatus != r.Status
}

// TargetStatus returns the status a product should hold for qty, or current
// when no flip applies. Discontinued products never change.
func TargetStatus(current string, qty int) string {
	switch {
	case qty == 0 && current == productDatamodel.StatusAvailable:
		return productDatamodel.StatusOutOfStock
	case qty > 0 && current == productDatamodel.StatusOutOfStock:
		return productDatamodel.StatusAvailable
	default:
		return current
	}
}
