package postgres

import (
	"context"
	"errors"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	productDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
	stockDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/stock"
	"github.com/frahmantamala/shopbot-engine/internal/stock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository implements stock.RepositoryAPI using GORM
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) stock.RepositoryAPI {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) WithTx(tx *gorm.DB) stock.RepositoryAPI {
	return &LedgerRepository{db: tx}
}

// LockLedger reads the ledger row under SELECT ... FOR UPDATE.
func (r *LedgerRepository) LockLedger(ctx context.Context, productID int64) (*stockDatamodel.Ledger, error) {
	var ledger stockDatamodel.Ledger
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&ledger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, err
	}
	return &ledger, nil
}

// DecrementIfAvailable subtracts qty only while enough units remain and
// reports whether a row changed.
func (r *LedgerRepository) DecrementIfAvailable(ctx context.Context, productID int64, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&stockDatamodel.Ledger{}).
		Where("product_id = ? AND current_quantity >= ?", productID, qty).
		Update("current_quantity", gorm.Expr("current_quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *LedgerRepository) SetQuantity(ctx context.Context, productID int64, qty int) error {
	res := r.db.WithContext(ctx).
		Model(&stockDatamodel.Ledger{}).
		Where("product_id = ?", productID).
		Update("current_quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrStockNotFound
	}
	return nil
}

func (r *LedgerRepository) AppendHistory(ctx context.Context, h *stockDatamodel.History) error {
	return r.db.WithContext(ctx).Create(h).Error
}

// SyncProduct mirrors qty onto the product and applies the availability flip
// in the same statement, returning the resulting status.
func (r *LedgerRepository) SyncProduct(ctx context.Context, productID int64, qty int) (string, error) {
	res := r.db.WithContext(ctx).
		Model(&productDatamodel.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"stock_quantity": qty,
			"availability_status": gorm.Expr(
				"CASE WHEN ? = 0 AND availability_status = ? THEN ? WHEN ? > 0 AND availability_status = ? THEN ? ELSE availability_status END",
				qty, productDatamodel.StatusAvailable, productDatamodel.StatusOutOfStock,
				qty, productDatamodel.StatusOutOfStock, productDatamodel.StatusAvailable,
			),
		})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", apperrors.ErrProductNotFound
	}

	var product productDatamodel.Product
	err := r.db.WithContext(ctx).
		Select("id", "availability_status").
		Where("id = ?", productID).
		Take(&product).Error
	return product.AvailabilityStatus, err
}

func (r *LedgerRepository) ListHistory(ctx context.Context, productID int64, limit int) ([]*stockDatamodel.History, error) {
	var rows []*stockDatamodel.History
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
