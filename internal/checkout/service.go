// Package checkout orchestrates order creation: verify the payment when
// there is one, persist the order, then decrement stock per line item.
// The order write comes first: payment capture must survive inventory
// bookkeeping lagging behind, and the reconciler closes that gap.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/stitchkart/checkout/internal/kafka"
	"github.com/stitchkart/checkout/internal/orders"
	"github.com/stitchkart/checkout/internal/stock"
)

var ErrPaymentInvalid = errors.New("checkout: invalid payment signature")

type OrderStore interface {
	Insert(ctx context.Context, o *orders.Order) error
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*orders.Order, error)
	ListSplitByMethod(ctx context.Context) (razorpay, cod []*orders.Order, err error)
	SetDelivered(ctx context.Context, orderID string, at time.Time) error
	SetPaid(ctx context.Context, orderID string, at time.Time) error
	Stats(ctx context.Context) (orders.Stats, error)
}

type StockLedger interface {
	ApplyItem(ctx context.Context, item orders.LineItem) []stock.Result
}

type SignatureVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) bool
}

type ProductCounter interface {
	CountProducts(ctx context.Context) (int, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Orders   OrderStore
	Ledger   StockLedger
	Verifier SignatureVerifier
	Catalog  ProductCounter

	// Optional event streams; nil disables publishing.
	CreatedEvents   Publisher
	ReconcileEvents Publisher

	ServiceName    string
	DefaultCountry string
	Log            *zap.Logger
}

// CreateResult is the outcome of a successful order creation. StockIssues
// lists every coordinate whose decrement did not apply; the order itself
// is already persisted either way.
type CreateResult struct {
	Order       *orders.Order
	StockIssues []stock.Result
}

// CreateCODOrder builds and persists an unpaid cash-on-delivery order,
// then applies stock decrements for every line item.
func (s *Service) CreateCODOrder(ctx context.Context, buyerID string, items []orders.LineItem, addr orders.Address, pricing orders.Pricing) (*CreateResult, error) {
	o, err := orders.Build(buyerID, items, addr, pricing, orders.CODOutcome(), s.DefaultCountry)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, o)
}

// CreateVerifiedOrder verifies the gateway signature first; a mismatch
// persists nothing and touches no stock. On success the order is created
// already paid, with the gateway identifiers attached.
func (s *Service) CreateVerifiedOrder(ctx context.Context, buyerID, gatewayOrderID, gatewayPaymentID, signature string, items []orders.LineItem, addr orders.Address, pricing orders.Pricing) (*CreateResult, error) {
	if s.Verifier == nil || !s.Verifier.Verify(gatewayOrderID, gatewayPaymentID, signature) {
		return nil, ErrPaymentInvalid
	}
	outcome := orders.VerifiedOutcome(gatewayOrderID, gatewayPaymentID, signature, time.Now().UTC())
	o, err := orders.Build(buyerID, items, addr, pricing, outcome, s.DefaultCountry)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, o)
}

func (s *Service) create(ctx context.Context, o *orders.Order) (*CreateResult, error) {
	o.ID = uuid.NewString()

	if err := s.Orders.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("checkout: persist order: %w", err)
	}
	s.publishCreated(o)

	res := &CreateResult{Order: o}
	for _, item := range o.Items {
		for _, r := range s.Ledger.ApplyItem(ctx, item) {
			if r.Applied() {
				continue
			}
			res.StockIssues = append(res.StockIssues, r)
			s.publishDecrementFailed(o.ID, r)
			s.log().Warn("stock decrement did not apply",
				zap.String("order_id", o.ID),
				zap.String("product_id", r.ProductID),
				zap.String("list", string(r.Selector.List)),
				zap.String("color", r.Selector.Color),
				zap.String("size", r.Selector.Size),
				zap.String("outcome", string(r.Outcome)),
				zap.Error(r.Err),
			)
		}
	}

	s.log().Info("order created",
		zap.String("order_id", o.ID),
		zap.String("buyer_id", o.BuyerID),
		zap.String("method", string(o.PaymentMethod)),
		zap.Int64("total_cents", o.Pricing.TotalCents.Int64()),
		zap.Int("stock_issues", len(res.StockIssues)),
	)
	return res, nil
}

// MarkDelivered is idempotent: repeat calls return the already-delivered
// order unchanged.
func (s *Service) MarkDelivered(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.MarkDelivered(time.Now().UTC()) {
		if err := s.Orders.SetDelivered(ctx, o.ID, *o.DeliveredAt); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MarkPaid records a manual payment on a COD order. Gateway orders are
// rejected with orders.ErrInvalidTransition.
func (s *Service) MarkPaid(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	changed, err := o.MarkPaid(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.Orders.SetPaid(ctx, o.ID, *o.PaidAt); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	return s.Orders.Get(ctx, orderID)
}

func (s *Service) ListOrdersForBuyer(ctx context.Context, buyerID string) ([]*orders.Order, error) {
	return s.Orders.ListByBuyer(ctx, buyerID)
}

func (s *Service) ListAllOrdersSplitByMethod(ctx context.Context) (razorpay, cod []*orders.Order, err error) {
	return s.Orders.ListSplitByMethod(ctx)
}

func (s *Service) ComputeStats(ctx context.Context) (orders.Stats, error) {
	st, err := s.Orders.Stats(ctx)
	if err != nil {
		return orders.Stats{}, err
	}
	if s.Catalog != nil {
		n, err := s.Catalog.CountProducts(ctx)
		if err != nil {
			return orders.Stats{}, err
		}
		st.TotalProducts = n
	}
	return st, nil
}

func (s *Service) publishCreated(o *orders.Order) {
	if s.CreatedEvents == nil {
		return
	}
	refs := make([]orders.ItemRef, 0, len(o.Items))
	for _, it := range o.Items {
		refs = append(refs, orders.ItemRef{ProductID: it.ProductID, Qty: it.Qty.Int()})
	}
	s.publish(s.CreatedEvents, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:    o.ID,
		BuyerID:    o.BuyerID,
		Method:     o.PaymentMethod,
		TotalCents: o.Pricing.TotalCents.Int64(),
		Items:      refs,
	})
}

func (s *Service) publishDecrementFailed(orderID string, r stock.Result) {
	if s.ReconcileEvents == nil {
		return
	}
	s.publish(s.ReconcileEvents, orders.EventStockDecrementFail, orderID, orders.StockDecrementFailPayload{
		OrderID:   orderID,
		ProductID: r.ProductID,
		List:      string(r.Selector.List),
		Color:     r.Selector.Color,
		Size:      r.Selector.Size,
		Qty:       r.Selector.Qty,
		Reason:    string(r.Outcome),
	})
}

func (s *Service) publish(p Publisher, eventType, orderID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
