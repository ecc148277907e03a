package redisx

import "time"

const (
	// Cached order preview: order_preview:{order_id} -> JSON
	KeyOrderPreview = "order_preview:%d"

	// Cached top-stock product list (single key, short TTL)
	KeyTopProducts = "products:top5"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Low stock alert: stock_alert:{product_id} -> units left
	KeyStockAlert = "stock_alert:%d"
)

var (
	// Committed orders never change, the TTL just bounds memory.
	TTLOrderPreview = 1 * time.Hour
	TTLTopProducts  = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
	TTLStockAlert   = 24 * time.Hour
)
