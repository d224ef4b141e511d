// Package testdb opens throwaway SQLite databases carrying the full schema for package tests.
package testdb

import (
	"github.com/frahmantamala/shopbot-engine/internal/core/datamodel"
	productDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
	stockDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/stock"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	Gorm *gorm.DB
	Sqlx *sqlx.DB
}

// Open returns an in-memory database. A single connection is shared so every
// goroutine sees the same data and transactions serialize.
func Open() (*DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(datamodel.Models()...); err != nil {
		return nil, err
	}

	return &DB{Gorm: db, Sqlx: sqlx.NewDb(sqlDB, "sqlite3")}, nil
}

func (d *DB) Close() error {
	return d.Sqlx.Close()
}

// SeedProduct inserts a product with a matching ledger row.
func (d *DB) SeedProduct(id int64, name string, price int64, qty int) error {
	status := productDatamodel.StatusAvailable
	if qty == 0 {
		status = productDatamodel.StatusOutOfStock
	}
	if err := d.Gorm.Create(&productDatamodel.Product{
		ID:                 id,
		Name:               name,
		PriceIDR:           price,
		StockQuantity:      qty,
		AvailabilityStatus: status,
	}).Error; err != nil {
		return err
	}
	return d.Gorm.Create(&stockDatamodel.Ledger{ProductID: id, CurrentQuantity: qty}).Error
}

func (d *DB) Product(id int64) (*productDatamodel.Product, error) {
	var p productDatamodel.Product
	err := d.Gorm.First(&p, id).Error
	return &p, err
}

func (d *DB) Ledger(productID int64) (*stockDatamodel.Ledger, error) {
	var l stockDatamodel.Ledger
	err := d.Gorm.Where("product_id = ?", productID).First(&l).Error
	return &l, err
}
