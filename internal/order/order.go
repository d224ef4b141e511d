package order

import (
	"time"

	orderDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/order"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"

	PaymentStatusPending  = "pending"
	PaymentStatusVerified = "verified"
	PaymentStatusFailed   = "failed"
)

type Order struct {
	ID            int64     `json:"id"`
	CustomerID    string    `json:"customer_id"`
	ProductID     int64     `json:"product_id"`
	Quantity      int       `json:"quantity"`
	TotalAmount   int64     `json:"total_amount"`
	PaymentMethod string    `json:"payment_method"`
	PaymentStatus string    `json:"payment_status"`
	OrderStatus   string    `json:"order_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NextStatus returns the order status implied by a payment status change.
// A failed payment cancels the order only when cancelOnFailure is set.
func NextStatus(current, paymentStatus string, cancelOnFailure bool) string {
	if current == StatusCompleted || current == StatusCancelled {
		return current
	}
	switch paymentStatus {
	case PaymentStatusVerified:
		return StatusProcessing
	case PaymentStatusFailed:
		if cancelOnFailure {
			return StatusCancelled
		}
	}
	return current
}

func FromDataModel(o *orderDatamodel.Order) *Order {
	return &Order{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		ProductID:     o.ProductID,
		Quantity:      o.Quantity,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		OrderStatus:   o.OrderStatus,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
