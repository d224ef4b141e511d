package postgres

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	paymentDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/payment"
	"github.com/frahmantamala/shopbot-engine/internal/payment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository implements payment.RepositoryAPI using GORM
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) payment.RepositoryAPI {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) payment.RepositoryAPI {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *paymentDatamodel.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID int64) (*paymentDatamodel.Payment, error) {
	return r.first(r.db.WithContext(ctx).Where("order_id = ?", orderID))
}

// LockByID reads the payment under SELECT ... FOR UPDATE.
func (r *PaymentRepository) LockByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *PaymentRepository) LockByOrderID(ctx context.Context, orderID int64) (*paymentDatamodel.Payment, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("order_id = ?", orderID))
}

func (r *PaymentRepository) first(q *gorm.DB) (*paymentDatamodel.Payment, error) {
	var p paymentDatamodel.Payment
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// MarkVerified only moves a pending row.
func (r *PaymentRepository) MarkVerified(ctx context.Context, id int64, method string, transactionID *string, verifiedBy *int64, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":                 payment.StatusVerified,
		"verification_method":    method,
		"gateway_transaction_id": transactionID,
		"verified_by":            verifiedBy,
		"verified_at":            at,
	})
}

func (r *PaymentRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":         payment.StatusFailed,
		"failure_reason": reason,
	})
}

func (r *PaymentRepository) transition(ctx context.Context, id int64, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ? AND status = ?", id, payment.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrInvalidTransition
	}
	return nil
}

func (r *PaymentRepository) AttachProof(ctx context.Context, id int64, proofRef string) error {
	return r.db.WithContext(ctx).
		Model(&paymentDatamodel.Payment{}).
		Where("id = ?", id).
		Update("proof_reference", proofRef).Error
}
