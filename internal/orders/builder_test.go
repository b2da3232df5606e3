package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchkart/checkout/internal/money"
)

func validItems() []LineItem {
	return []LineItem{
		{ProductID: "p1", Name: "Classic Hoodie", UnitCents: 49900, Qty: 2, Kind: KindStandalone, Color: "Black", Size: "M"},
	}
}

func validPricing() Pricing {
	return Pricing{ItemsCents: 99800, ShippingCents: 4900, TaxCents: 0, TotalCents: 104700}
}

func TestBuildCODOrder(t *testing.T) {
	o, err := Build("buyer-1", validItems(), Address{Country: "Nepal"}, validPricing(), CODOutcome(), "India")
	require.NoError(t, err)

	assert.Equal(t, "buyer-1", o.BuyerID)
	assert.Equal(t, MethodCOD, o.PaymentMethod)
	assert.False(t, o.IsPaid)
	assert.Nil(t, o.PaidAt)
	assert.False(t, o.IsDelivered)
	assert.Nil(t, o.PaymentResult)
	assert.Equal(t, "Nepal", o.ShippingAddress.Country)
	assert.Equal(t, money.Cents(104700), o.Pricing.TotalCents)
}

func TestBuildDefaultsCountry(t *testing.T) {
	o, err := Build("buyer-1", validItems(), Address{Name: "A", Phone: "99"}, validPricing(), CODOutcome(), "India")
	require.NoError(t, err)
	assert.Equal(t, "India", o.ShippingAddress.Country)
	assert.Equal(t, "A", o.ShippingAddress.Name)
}

func TestBuildVerifiedOrderIsPaid(t *testing.T) {
	at := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	o, err := Build("buyer-1", validItems(), Address{}, validPricing(),
		VerifiedOutcome("order_gw", "pay_gw", "sig", at), "India")
	require.NoError(t, err)

	assert.Equal(t, MethodRazorpay, o.PaymentMethod)
	assert.True(t, o.IsPaid)
	require.NotNil(t, o.PaidAt)
	assert.Equal(t, at, *o.PaidAt)
	require.NotNil(t, o.PaymentResult)
	assert.Equal(t, "order_gw", o.PaymentResult.GatewayOrderID)
	assert.Equal(t, "pay_gw", o.PaymentResult.GatewayPaymentID)
	assert.Equal(t, PaymentStatusCompleted, o.PaymentResult.Status)
}

func TestBuildRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		buyerID string
		items   []LineItem
	}{
		{"empty cart", "buyer-1", nil},
		{"zero quantity", "buyer-1", []LineItem{{ProductID: "p1", Qty: 0, Kind: KindStandalone}}},
		{"negative quantity", "buyer-1", []LineItem{{ProductID: "p1", Qty: -1, Kind: KindStandalone}}},
		{"missing product id", "buyer-1", []LineItem{{Qty: 1, Kind: KindStandalone}}},
		{"unknown kind", "buyer-1", []LineItem{{ProductID: "p1", Qty: 1, Kind: "bundle"}}},
		{"missing buyer", "", validItems()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.buyerID, tc.items, Address{}, validPricing(), CODOutcome(), "India")
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestBuildSnapshotsItems(t *testing.T) {
	items := validItems()
	o, err := Build("buyer-1", items, Address{}, validPricing(), CODOutcome(), "India")
	require.NoError(t, err)

	items[0].Qty = 99
	assert.Equal(t, money.Quantity(2), o.Items[0].Qty, "order keeps its own copy of the cart")
}

func TestMarkDelivered(t *testing.T) {
	o := &Order{}
	now := time.Now().UTC()

	assert.True(t, o.MarkDelivered(now))
	assert.True(t, o.IsDelivered)
	first := *o.DeliveredAt

	assert.False(t, o.MarkDelivered(now.Add(time.Hour)))
	assert.Equal(t, first, *o.DeliveredAt, "repeat call leaves the timestamp alone")
}

func TestMarkPaid(t *testing.T) {
	now := time.Now().UTC()

	cod := &Order{PaymentMethod: MethodCOD}
	changed, err := cod.MarkPaid(now)
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, cod.IsPaid)

	changed, err = cod.MarkPaid(now.Add(time.Hour))
	assert.NoError(t, err)
	assert.False(t, changed, "already paid is a no-op")

	gw := &Order{PaymentMethod: MethodRazorpay, IsPaid: true}
	_, err = gw.MarkPaid(now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.True(t, gw.IsPaid)
}
