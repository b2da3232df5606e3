package redisx

import "time"

const (
	// Rendered order view: order:view:{order_id} -> order JSON
	KeyOrderView = "order:view:%s"

	// Per-product stock snapshot: product:stock:{product_id} -> stock JSON.
	// Invalidated by the ledger on every applied decrement.
	KeyProductStock = "product:stock:%s"

	// Event dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderView    = 5 * time.Minute
	TTLProductStock = 1 * time.Minute
	TTLDedup        = 48 * time.Hour
)
