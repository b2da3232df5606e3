package checkout

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchkart/checkout/internal/catalog"
	"github.com/stitchkart/checkout/internal/orders"
	"github.com/stitchkart/checkout/internal/payment"
	"github.com/stitchkart/checkout/internal/stock"
)

/* ---------- fakes ---------- */

type memOrders struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]*orders.Order{}}
}

func (m *memOrders) clone(o *orders.Order) *orders.Order {
	c := *o
	c.Items = append([]orders.LineItem(nil), o.Items...)
	return &c
}

func (m *memOrders) Insert(ctx context.Context, o *orders.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = m.clone(o)
	return nil
}

func (m *memOrders) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return m.clone(o), nil
}

func (m *memOrders) ListByBuyer(ctx context.Context, buyerID string) ([]*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*orders.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			out = append(out, m.clone(o))
		}
	}
	return out, nil
}

func (m *memOrders) ListSplitByMethod(ctx context.Context) (razorpay, cod []*orders.Order, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentMethod == orders.MethodRazorpay {
			razorpay = append(razorpay, m.clone(o))
		} else {
			cod = append(cod, m.clone(o))
		}
	}
	return razorpay, cod, nil
}

func (m *memOrders) SetDelivered(ctx context.Context, orderID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok && !o.IsDelivered {
		o.IsDelivered = true
		o.DeliveredAt = &at
	}
	return nil
}

func (m *memOrders) SetPaid(ctx context.Context, orderID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok && o.PaymentMethod == orders.MethodCOD && !o.IsPaid {
		o.IsPaid = true
		o.PaidAt = &at
	}
	return nil
}

func (m *memOrders) Stats(ctx context.Context) (orders.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s orders.Stats
	for _, o := range m.orders {
		s.TotalOrders++
		if o.IsDelivered {
			s.DeliveredOrders++
		} else {
			s.PendingDeliveries++
		}
		if o.IsPaid {
			s.RevenueCents += o.Pricing.TotalCents
		}
	}
	return s, nil
}

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// scriptedLedger applies everything unless a product id is scripted to
// a different outcome.
type scriptedLedger struct {
	mu       sync.Mutex
	outcomes map[string]stock.Outcome
	applied  []stock.Selector
}

func (f *scriptedLedger) ApplyItem(ctx context.Context, item orders.LineItem) []stock.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	sels := []stock.Selector{{List: catalog.ListVariants, Color: item.Color, Size: item.Size, Qty: item.Qty.Int()}}
	if item.Kind == orders.KindCouplePack {
		sels = []stock.Selector{
			{List: catalog.ListCoupleA, Color: item.ColorA, Size: item.SizeA, Qty: item.Qty.Int()},
			{List: catalog.ListCoupleB, Color: item.ColorB, Size: item.SizeB, Qty: item.Qty.Int()},
		}
	}
	out := make([]stock.Result, 0, len(sels))
	for _, sel := range sels {
		res := stock.Result{ProductID: item.ProductID, Selector: sel, Outcome: stock.OutcomeApplied}
		if o, ok := f.outcomes[item.ProductID]; ok {
			res.Outcome = o
			if o == stock.OutcomePersistenceError {
				res.Err = assert.AnError
			}
		} else {
			f.applied = append(f.applied, sel)
		}
		out = append(out, res)
	}
	return out
}

type capturedEvents struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (c *capturedEvents) Publish(key, value []byte, headers ...kafkago.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, value)
}

func (c *capturedEvents) envelopes(t *testing.T) []orders.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]orders.Envelope, 0, len(c.msgs))
	for _, m := range c.msgs {
		var env orders.Envelope
		require.NoError(t, json.Unmarshal(m, &env))
		out = append(out, env)
	}
	return out
}

type fixedCount int

func (f fixedCount) CountProducts(ctx context.Context) (int, error) { return int(f), nil }

const testSecret = "test_secret"

func newTestService() (*Service, *memOrders, *scriptedLedger, *capturedEvents, *capturedEvents) {
	store := newMemOrders()
	ledger := &scriptedLedger{outcomes: map[string]stock.Outcome{}}
	created := &capturedEvents{}
	reconcile := &capturedEvents{}
	svc := &Service{
		Orders:          store,
		Ledger:          ledger,
		Verifier:        payment.NewVerifier(testSecret),
		Catalog:         fixedCount(7),
		CreatedEvents:   created,
		ReconcileEvents: reconcile,
		ServiceName:     "checkout-test",
		DefaultCountry:  "India",
	}
	return svc, store, ledger, created, reconcile
}

func cartItems() []orders.LineItem {
	return []orders.LineItem{
		{ProductID: "p1", Name: "Classic Hoodie", UnitCents: 49900, Qty: 3, Kind: orders.KindStandalone, Color: "Black", Size: "S"},
	}
}

func cartPricing() orders.Pricing {
	return orders.Pricing{ItemsCents: 149700, ShippingCents: 0, TaxCents: 0, TotalCents: 149700}
}

/* ---------- creation ---------- */

func TestCreateCODOrder(t *testing.T) {
	svc, store, ledger, created, _ := newTestService()

	res, err := svc.CreateCODOrder(context.Background(), "buyer-1", cartItems(), orders.Address{}, cartPricing())
	require.NoError(t, err)
	require.NotNil(t, res.Order)

	assert.NotEmpty(t, res.Order.ID)
	assert.False(t, res.Order.IsPaid)
	assert.Equal(t, orders.MethodCOD, res.Order.PaymentMethod)
	assert.Equal(t, "India", res.Order.ShippingAddress.Country)
	assert.Empty(t, res.StockIssues)
	assert.Equal(t, 1, store.count())

	require.Len(t, ledger.applied, 1)
	assert.Equal(t, 3, ledger.applied[0].Qty)

	envs := created.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, orders.EventOrderCreated, envs[0].EventType)
	assert.Equal(t, res.Order.ID, envs[0].CorrelationID)
}

func TestCreateCODOrderEmptyCart(t *testing.T) {
	svc, store, ledger, _, _ := newTestService()

	_, err := svc.CreateCODOrder(context.Background(), "buyer-1", nil, orders.Address{}, cartPricing())
	assert.ErrorIs(t, err, orders.ErrInvalidOrder)
	assert.Equal(t, 0, store.count(), "nothing persisted")
	assert.Empty(t, ledger.applied, "no stock touched")
}

func TestCreateVerifiedOrder(t *testing.T) {
	svc, store, _, _, _ := newTestService()
	sig := payment.NewVerifier(testSecret).Sign("order_gw", "pay_gw")

	res, err := svc.CreateVerifiedOrder(context.Background(), "buyer-1", "order_gw", "pay_gw", sig,
		cartItems(), orders.Address{}, cartPricing())
	require.NoError(t, err)

	assert.True(t, res.Order.IsPaid)
	require.NotNil(t, res.Order.PaidAt)
	assert.Equal(t, orders.MethodRazorpay, res.Order.PaymentMethod)
	require.NotNil(t, res.Order.PaymentResult)
	assert.Equal(t, "order_gw", res.Order.PaymentResult.GatewayOrderID)
	assert.Equal(t, orders.PaymentStatusCompleted, res.Order.PaymentResult.Status)
	assert.Equal(t, 1, store.count())
}

func TestCreateVerifiedOrderTamperedSignature(t *testing.T) {
	svc, store, ledger, created, _ := newTestService()
	sig := payment.NewVerifier(testSecret).Sign("order_gw", "pay_gw")

	_, err := svc.CreateVerifiedOrder(context.Background(), "buyer-1", "order_gw", "pay_other", sig,
		cartItems(), orders.Address{}, cartPricing())
	assert.ErrorIs(t, err, ErrPaymentInvalid)
	assert.Equal(t, 0, store.count(), "tampered payment creates nothing")
	assert.Empty(t, ledger.applied)
	assert.Empty(t, created.envelopes(t))
}

func TestCreateOrderReportsStockIssues(t *testing.T) {
	svc, store, ledger, _, reconcile := newTestService()
	ledger.outcomes["p-gone"] = stock.OutcomeProductNotFound

	items := append(cartItems(), orders.LineItem{
		ProductID: "p-gone", Qty: 1, Kind: orders.KindStandalone, Color: "Black", Size: "M",
	})
	res, err := svc.CreateCODOrder(context.Background(), "buyer-1", items, orders.Address{}, cartPricing())
	require.NoError(t, err, "catalog drift never fails the order")

	assert.Equal(t, 1, store.count())
	require.Len(t, res.StockIssues, 1)
	assert.Equal(t, "p-gone", res.StockIssues[0].ProductID)
	assert.Equal(t, stock.OutcomeProductNotFound, res.StockIssues[0].Outcome)

	envs := reconcile.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, orders.EventStockDecrementFail, envs[0].EventType)
}

func TestCreateOrderSurvivesDecrementPersistenceError(t *testing.T) {
	svc, store, ledger, _, reconcile := newTestService()
	ledger.outcomes["p1"] = stock.OutcomePersistenceError

	res, err := svc.CreateCODOrder(context.Background(), "buyer-1", cartItems(), orders.Address{}, cartPricing())
	require.NoError(t, err, "order persists even when bookkeeping lags")

	assert.Equal(t, 1, store.count())
	require.Len(t, res.StockIssues, 1)
	assert.Equal(t, stock.OutcomePersistenceError, res.StockIssues[0].Outcome)
	require.Len(t, reconcile.envelopes(t), 1, "reconciler gets the replay event")
}

/* ---------- transitions ---------- */

func TestMarkDeliveredIdempotent(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	res, err := svc.CreateCODOrder(context.Background(), "buyer-1", cartItems(), orders.Address{}, cartPricing())
	require.NoError(t, err)

	first, err := svc.MarkDelivered(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.True(t, first.IsDelivered)
	require.NotNil(t, first.DeliveredAt)

	second, err := svc.MarkDelivered(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.True(t, second.IsDelivered)
	assert.Equal(t, *first.DeliveredAt, *second.DeliveredAt)
}

func TestMarkPaidCODOnly(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	cod, err := svc.CreateCODOrder(context.Background(), "buyer-1", cartItems(), orders.Address{}, cartPricing())
	require.NoError(t, err)

	paid, err := svc.MarkPaid(context.Background(), cod.Order.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)

	sig := payment.NewVerifier(testSecret).Sign("order_gw", "pay_gw")
	gw, err := svc.CreateVerifiedOrder(context.Background(), "buyer-1", "order_gw", "pay_gw", sig,
		cartItems(), orders.Address{}, cartPricing())
	require.NoError(t, err)

	_, err = svc.MarkPaid(context.Background(), gw.Order.ID)
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)

	got, err := svc.GetOrder(context.Background(), gw.Order.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid, "gateway order stays paid, untouched")
}

func TestMarkDeliveredUnknownOrder(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.MarkDelivered(context.Background(), "nope")
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

/* ---------- reads ---------- */

func TestListAndStats(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ctx := context.Background()

	cod, err := svc.CreateCODOrder(ctx, "buyer-1", cartItems(), orders.Address{}, cartPricing())
	require.NoError(t, err)

	sig := payment.NewVerifier(testSecret).Sign("order_gw", "pay_gw")
	_, err = svc.CreateVerifiedOrder(ctx, "buyer-2", "order_gw", "pay_gw", sig,
		cartItems(), orders.Address{}, cartPricing())
	require.NoError(t, err)

	mine, err := svc.ListOrdersForBuyer(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, cod.Order.ID, mine[0].ID)

	razorpay, codOrders, err := svc.ListAllOrdersSplitByMethod(ctx)
	require.NoError(t, err)
	assert.Len(t, razorpay, 1)
	assert.Len(t, codOrders, 1)

	st, err := svc.ComputeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalOrders)
	assert.Equal(t, 0, st.DeliveredOrders)
	assert.Equal(t, 2, st.PendingDeliveries)
	assert.Equal(t, 7, st.TotalProducts)
	assert.Equal(t, cartPricing().TotalCents, st.RevenueCents, "only the paid gateway order counts")
}
