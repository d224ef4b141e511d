package payment

import "time"

type Payment struct {
	ID                   int64      `gorm:"primaryKey"`
	OrderID              int64      `gorm:"column:order_id;not null;uniqueIndex"`
	PaymentMethod        string     `gorm:"column:payment_method;not null"`
	Amount               int64      `gorm:"column:amount;not null"`
	Status               string     `gorm:"column:status;not null;default:pending"`
	VerificationMethod   *string    `gorm:"column:verification_method"`
	VerifiedBy           *int64     `gorm:"column:verified_by"`
	GatewayTransactionID *string    `gorm:"column:gateway_transaction_id"`
	ProofReference       *string    `gorm:"column:proof_reference"`
	FailureReason        *string    `gorm:"column:failure_reason"`
	VerifiedAt           *time.Time `gorm:"column:verified_at"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string {
	return "payments"
}
