package stock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/stitchkart/checkout/internal/catalog"
	kafkax "github.com/stitchkart/checkout/internal/kafka"
	"github.com/stitchkart/checkout/internal/orders"
	"github.com/stitchkart/checkout/internal/redisx"
)

// Reconciler replays stock decrements that failed after their order was
// already persisted. It is the operator-side consumer of
// checkout.stock.decrement.failed; the API never waits on it.
type Reconciler struct {
	Ledger *Ledger
	Redis  *redis.Client // optional; event dedup
	Log    *zap.Logger
}

// HandleDecrementFailed is mounted as the consumer handler. Returning an
// error leaves the offset uncommitted so the event is retried.
func (r *Reconciler) HandleDecrementFailed(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("reconciler: decode envelope: %w", err)
	}
	if env.EventType != orders.EventStockDecrementFail {
		return nil
	}

	// Dedup by event id so redeliveries do not double-decrement.
	dkey := fmt.Sprintf(redisx.KeyDedup, "reconciler", env.EventID)
	if r.Redis != nil {
		if exists, _ := redisx.Exists(ctx, r.Redis, dkey); exists {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.StockDecrementFailPayload](env.Payload)
	if err != nil {
		return fmt.Errorf("reconciler: %w", err)
	}

	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(
		zap.String("event_id", env.EventID),
		zap.String("order_id", p.OrderID),
		zap.String("product_id", p.ProductID),
	)

	// Not-found reasons are catalog drift; replaying cannot fix them.
	// Surface for operators and move on.
	if p.Reason != string(OutcomePersistenceError) {
		log.Warn("catalog drift reported by checkout", zap.String("reason", p.Reason))
		r.markDone(ctx, dkey)
		return nil
	}

	res := r.Ledger.Decrement(ctx, p.ProductID, Selector{
		List:  catalog.ListKind(p.List),
		Color: p.Color,
		Size:  p.Size,
		Qty:   p.Qty,
	})
	if res.Outcome == OutcomePersistenceError {
		log.Error("replay failed, leaving event for retry", zap.Error(res.Err))
		return res.Err
	}

	log.Info("decrement replayed",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("new_stock", res.NewStock),
		zap.Bool("clamped", res.Clamped),
	)
	r.markDone(ctx, dkey)
	return nil
}

func (r *Reconciler) markDone(ctx context.Context, dkey string) {
	if r.Redis == nil {
		return
	}
	_ = r.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}
