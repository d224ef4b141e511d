package payment

import (
	errors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/core/common/validation"
)

type FailRequest struct {
	Reason string `json:"reason"`
}

func (r FailRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("reason", r.Reason).Required().MaxLength(500)
	return v.Validate()
}

type ProofRequest struct {
	ProofReference string `json:"proof_reference"`
}

func (r ProofRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("proof_reference", r.ProofReference).Required().MaxLength(1024)
	return v.Validate()
}

// CallbackRequest is the gateway webhook body. Signature checks happen upstream.
type CallbackRequest struct {
	OrderID       int64  `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	FailureReason string `json:"failure_reason,omitempty"`
}

func (r CallbackRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("order_id", r.OrderID).MinInt(1, errors.ErrCodeValidationFailed)
	v.Field("transaction_id", r.TransactionID).Required().MaxLength(128)
	v.Field("status", r.Status).Required()
	return v.Validate()
}

type CallbackResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	PaymentStatus string `json:"payment_status,omitempty"`
}
