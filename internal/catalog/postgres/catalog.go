package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	"github.com/frahmantamala/shopbot-engine/internal/catalog"
	productDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
	stockDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/stock"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const productColumns = `
	p.id AS id,
	p.name AS name,
	p.description AS description,
	p.price_idr AS price_idr,
	COALESCE(l.current_quantity, 0) AS stock_quantity,
	p.availability_status AS availability_status,
	p.updated_at AS updated_at`

// CatalogRepository reads through sqlx and writes availability through GORM.
type CatalogRepository struct {
	db   *gorm.DB
	read *sqlx.DB
}

func NewCatalogRepository(db *gorm.DB, read *sqlx.DB) catalog.RepositoryAPI {
	return &CatalogRepository{db: db, read: read}
}

func (r *CatalogRepository) GetProduct(ctx context.Context, productID int64) (*catalog.Product, error) {
	query := r.read.Rebind(`SELECT` + productColumns + `
		FROM products p
		LEFT JOIN stock_ledgers l ON l.product_id = p.id
		WHERE p.id = ?`)

	var product catalog.Product
	if err := r.read.GetContext(ctx, &product, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *CatalogRepository) ListAvailable(ctx context.Context) ([]*catalog.Product, error) {
	query := r.read.Rebind(`SELECT` + productColumns + `
		FROM products p
		JOIN stock_ledgers l ON l.product_id = p.id
		WHERE p.availability_status = ? AND l.current_quantity > 0
		ORDER BY p.name ASC, p.id ASC`)

	products := make([]*catalog.Product, 0)
	if err := r.read.SelectContext(ctx, &products, query, productDatamodel.StatusAvailable); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *CatalogRepository) SyncAvailability(ctx context.Context, productID int64) (*catalog.SyncResult, error) {
	var result *catalog.SyncResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product productDatamodel.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stock_quantity", "availability_status").
			Where("id = ?", productID).
			Take(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrProductNotFound
			}
			return err
		}

		var ledger stockDatamodel.Ledger
		err = tx.Select("product_id", "current_quantity").
			Where("product_id = ?", productID).
			Take(&ledger).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrStockNotFound
			}
			return err
		}

		result = &catalog.SyncResult{
			ProductID:      productID,
			Quantity:       ledger.CurrentQuantity,
			PreviousStatus: product.AvailabilityStatus,
			Status:         product.AvailabilityStatus,
		}

		target := catalog.TargetStatus(product.AvailabilityStatus, ledger.CurrentQuantity)
		if target == product.AvailabilityStatus && product.StockQuantity == ledger.CurrentQuantity {
			return nil
		}

		res := tx.Model(&productDatamodel.Product{}).
			Where("id = ? AND availability_status = ?", productID, product.AvailabilityStatus).
			Updates(map[string]interface{}{
				"stock_quantity":      ledger.CurrentQuantity,
				"availability_status": target,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			result.Status = target
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
