package order

import (
	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/core/common/validation"
)

type CheckoutRequest struct {
	CustomerID    string `json:"customer_id"`
	ProductID     int64  `json:"product_id"`
	Quantity      int    `json:"quantity"`
	PaymentMethod string `json:"payment_method"`
}

func (r CheckoutRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("customer_id", r.CustomerID).Required().MaxLength(64)
	v.Field("product_id", r.ProductID).MinInt(1, errors.ErrCodeValidationFailed)
	v.Field("quantity", r.Quantity).MinInt(1, errors.ErrCodeInvalidQuantity).MaxInt(1000, errors.ErrCodeInvalidQuantity)
	v.Field("payment_method", r.PaymentMethod).Required().OneOf(errors.ErrCodeInvalidMethod, "qris", "manual_bank_transfer")
	return v.Validate()
}

type CheckoutResponse struct {
	Order     *Order `json:"order"`
	PaymentID int64  `json:"payment_id"`
}
