package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventStockDecrementFail = "StockDecrementFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemRef struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID    string        `json:"order_id"`
	BuyerID    string        `json:"buyer_id"`
	Method     PaymentMethod `json:"method"`
	TotalCents int64         `json:"total_cents"`
	Items      []ItemRef     `json:"items"`
}

// StockDecrementFailPayload describes one stock coordinate whose decrement
// did not apply after the order was persisted. The reconciler replays
// persistence failures; not-found reasons are catalog drift and only logged.
type StockDecrementFailPayload struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	List      string `json:"list"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Qty       int    `json:"qty"`
	Reason    string `json:"reason"` // PRODUCT_NOT_FOUND | VARIANT_NOT_FOUND | PERSISTENCE_ERROR
}
