package datamodel

import (
	"github.com/frahmantamala/shopbot-engine/internal/core/datamodel/admin"
	"github.com/frahmantamala/shopbot-engine/internal/core/datamodel/notification"
	"github.com/frahmantamala/shopbot-engine/internal/core/datamodel/order"
	"github.com/frahmantamala/shopbot-engine/internal/core/datamodel/payment"
	"github.com/frahmantamala/shopbot-engine/internal/core/datamodel/product"
	"github.com/frahmantamala/shopbot-engine/internal/core/datamodel/stock"
)

// Models lists every persisted table, in dependency order, for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&product.Product{},
		&stock.Ledger{},
		&stock.History{},
		&order.Order{},
		&payment.Payment{},
		&admin.Admin{},
		&notification.Delivery{},
	}
}
