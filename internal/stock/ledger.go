// Package stock is the write side of inventory: it turns resolved line
// items into clamped, concurrency-safe decrements against the catalog
// store and reports per-coordinate outcomes without aborting checkout.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stitchkart/checkout/internal/catalog"
	"github.com/stitchkart/checkout/internal/orders"
	"github.com/stitchkart/checkout/internal/redisx"
)

type Outcome string

const (
	OutcomeApplied          Outcome = "APPLIED"
	OutcomeProductNotFound  Outcome = "PRODUCT_NOT_FOUND"
	OutcomeVariantNotFound  Outcome = "VARIANT_NOT_FOUND"
	OutcomePersistenceError Outcome = "PERSISTENCE_ERROR"
)

// Selector names one stock coordinate plus the quantity to subtract.
type Selector struct {
	List  catalog.ListKind
	Color string
	Size  string
	Qty   int
}

type Result struct {
	ProductID string
	Selector  Selector
	Outcome   Outcome
	NewStock  int
	Clamped   bool
	Err       error
}

// Applied reports whether the decrement reached the store.
func (r Result) Applied() bool { return r.Outcome == OutcomeApplied }

// Store is the slice of the catalog the ledger needs: a server-side
// "subtract qty at this coordinate, clamped at zero" primitive.
type Store interface {
	AdjustStock(ctx context.Context, productID string, list catalog.ListKind, colorName, size string, qty int) (newStock int, clamped bool, err error)
}

type Ledger struct {
	store Store
	cache *redis.Client // optional; stock-view cache invalidation
	log   *zap.Logger
}

func NewLedger(store Store, cache *redis.Client, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{store: store, cache: cache, log: log}
}

// Decrement applies one clamped decrement. Missing products or variants
// are reported, never escalated: orders must survive catalog drift.
func (l *Ledger) Decrement(ctx context.Context, productID string, sel Selector) Result {
	if sel.Qty <= 0 {
		sel.Qty = 1
	}
	res := Result{ProductID: productID, Selector: sel}

	newStock, clamped, err := l.store.AdjustStock(ctx, productID, sel.List, sel.Color, sel.Size, sel.Qty)
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		res.Outcome = OutcomeProductNotFound
	case errors.Is(err, catalog.ErrVariantNotFound):
		res.Outcome = OutcomeVariantNotFound
	case err != nil:
		res.Outcome = OutcomePersistenceError
		res.Err = fmt.Errorf("stock: decrement %s/%s/%s/%s: %w", productID, sel.List, sel.Color, sel.Size, err)
	default:
		res.Outcome = OutcomeApplied
		res.NewStock = newStock
		res.Clamped = clamped
		l.invalidate(ctx, productID)
		if clamped {
			l.log.Info("stock clamped at zero",
				zap.String("product_id", productID),
				zap.String("list", string(sel.List)),
				zap.String("color", sel.Color),
				zap.String("size", sel.Size),
				zap.Int("qty", sel.Qty),
			)
		}
	}
	return res
}

// ApplyItem runs the decrements a line item implies: one coordinate for a
// standalone item, two independent coordinates (A then B) for a couple
// pack. A failure on one half never rolls back the other.
func (l *Ledger) ApplyItem(ctx context.Context, item orders.LineItem) []Result {
	qty := item.Qty.Int()
	if item.Kind == orders.KindCouplePack {
		a := l.Decrement(ctx, item.ProductID, Selector{List: catalog.ListCoupleA, Color: item.ColorA, Size: item.SizeA, Qty: qty})
		b := l.Decrement(ctx, item.ProductID, Selector{List: catalog.ListCoupleB, Color: item.ColorB, Size: item.SizeB, Qty: qty})
		return []Result{a, b}
	}
	return []Result{
		l.Decrement(ctx, item.ProductID, Selector{List: catalog.ListVariants, Color: item.Color, Size: item.Size, Qty: qty}),
	}
}

func (l *Ledger) invalidate(ctx context.Context, productID string) {
	if l.cache == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyProductStock, productID)
	if err := l.cache.Del(ctx, key).Err(); err != nil {
		l.log.Warn("stock cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
