package postgres

import (
	"context"
	"errors"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	orderDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/order"
	productDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
	"github.com/frahmantamala/shopbot-engine/internal/order"
	"gorm.io/gorm"
)

// OrderRepository implements order.RepositoryAPI using GORM
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) order.RepositoryAPI {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) order.RepositoryAPI {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(ctx context.Context, o *orderDatamodel.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*orderDatamodel.Order, error) {
	var o orderDatamodel.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*orderDatamodel.Order, error) {
	var orders []*orderDatamodel.Order
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepository) UpdateStatuses(ctx context.Context, id int64, paymentStatus, orderStatus string) error {
	res := r.db.WithContext(ctx).
		Model(&orderDatamodel.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_status": paymentStatus,
			"order_status":   orderStatus,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) GetProduct(ctx context.Context, productID int64) (*productDatamodel.Product, error) {
	var p productDatamodel.Product
	err := r.db.WithContext(ctx).Where("id = ?", productID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}
