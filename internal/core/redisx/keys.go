package redisx

import (
	"fmt"
	"time"
)

const (
	// Cached product: catalog:product:{product_id} -> product JSON
	KeyCatalogProduct = "catalog:product:%d"

	// Cached list of available products: catalog:list -> []product JSON
	KeyCatalogList = "catalog:list"

	// Notification read receipts: notif:read:{message_id} -> {"admin_id":..,"read_at":..}
	KeyNotificationRead = "notif:read:%s"
)

var (
	TTLCatalog    = 10 * time.Minute
	TTLReadStatus = 24 * time.Hour
)

func CatalogProductKey(productID int64) string {
	return fmt.Sprintf(KeyCatalogProduct, productID)
}

func NotificationReadKey(messageID string) string {
	return fmt.Sprintf(KeyNotificationRead, messageID)
}
