package payment

import (
	"time"

	paymentDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/payment"
)

const (
	MethodQRIS           = "qris"
	MethodManualTransfer = "manual_bank_transfer"

	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusFailed   = "failed"

	VerificationAutomatic = "automatic"
	VerificationManual    = "manual"
)

type Payment struct {
	ID                   int64      `json:"id"`
	OrderID              int64      `json:"order_id"`
	PaymentMethod        string     `json:"payment_method"`
	Amount               int64      `json:"amount"`
	Status               string     `json:"status"`
	VerificationMethod   *string    `json:"verification_method,omitempty"`
	VerifiedBy           *int64     `json:"verified_by,omitempty"`
	GatewayTransactionID *string    `json:"gateway_transaction_id,omitempty"`
	ProofReference       *string    `json:"proof_reference,omitempty"`
	FailureReason        *string    `json:"failure_reason,omitempty"`
	VerifiedAt           *time.Time `json:"verified_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsTerminal reports whether status admits no further transition.
func IsTerminal(status string) bool {
	return status == StatusVerified || status == StatusFailed
}

func FromDataModel(p *paymentDatamodel.Payment) *Payment {
	return &Payment{
		ID:                   p.ID,
		OrderID:              p.OrderID,
		PaymentMethod:        p.PaymentMethod,
		Amount:               p.Amount,
		Status:               p.Status,
		VerificationMethod:   p.VerificationMethod,
		VerifiedBy:           p.VerifiedBy,
		GatewayTransactionID: p.GatewayTransactionID,
		ProofReference:       p.ProofReference,
		FailureReason:        p.FailureReason,
		VerifiedAt:           p.VerifiedAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// MapGatewayStatus normalises gateway callback statuses to internal ones.
func MapGatewayStatus(gatewayStatus string) string {
	switch gatewayStatus {
	case "success", "paid", "settlement", "completed", "verified":
		return StatusVerified
	case "failed", "expired", "cancelled", "canceled", "deny":
		return StatusFailed
	default:
		return StatusPending
	}
}
