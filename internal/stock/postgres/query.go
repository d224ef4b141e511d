package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "github.com/frahmantamala/shopbot-engine/internal"
	productDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
	"github.com/frahmantamala/shopbot-engine/internal/stock"
	"github.com/jmoiron/sqlx"
)

const levelColumns = `
	l.product_id AS product_id,
	p.name AS product_name,
	l.current_quantity AS current_quantity,
	l.reserved_quantity AS reserved_quantity,
	p.availability_status AS availability_status,
	l.updated_at AS updated_at`

// QueryRepository serves stock reads with plain SQL over sqlx.
type QueryRepository struct {
	db *sqlx.DB
}

func NewQueryRepository(db *sqlx.DB) stock.QueryAPI {
	return &QueryRepository{db: db}
}

func (r *QueryRepository) GetLevel(ctx context.Context, productID int64) (*stock.Level, error) {
	query := r.db.Rebind(`SELECT` + levelColumns + `
		FROM stock_ledgers l
		JOIN products p ON p.id = l.product_id
		WHERE l.product_id = ?`)

	var level stock.Level
	if err := r.db.GetContext(ctx, &level, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrStockNotFound
		}
		return nil, err
	}
	return &level, nil
}

// ListAtOrBelow skips discontinued products.
func (r *QueryRepository) ListAtOrBelow(ctx context.Context, threshold int) ([]*stock.Level, error) {
	query := r.db.Rebind(`SELECT` + levelColumns + `
		FROM stock_ledgers l
		JOIN products p ON p.id = l.product_id
		WHERE l.current_quantity <= ? AND p.availability_status <> ?
		ORDER BY l.current_quantity ASC, l.product_id ASC`)

	levels := make([]*stock.Level, 0)
	if err := r.db.SelectContext(ctx, &levels, query, threshold, productDatamodel.StatusDiscontinued); err != nil {
		return nil, err
	}
	return levels, nil
}
