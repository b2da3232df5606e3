package orders

import (
	"time"

	"github.com/stitchkart/checkout/internal/money"
)

type PaymentMethod string

const (
	MethodCOD      PaymentMethod = "COD"
	MethodRazorpay PaymentMethod = "Razorpay"
)

// ItemKind tags the two line-item shapes. The shape is resolved once at
// the API boundary; nothing downstream re-inspects field presence.
type ItemKind string

const (
	KindStandalone ItemKind = "standalone"
	KindCouplePack ItemKind = "couple_pack"
)

// LineItem is a snapshot of one cart row, not a live product reference.
// Standalone items use Color/Size; couple packs carry a selection for
// each half (A and B are stocked independently).
type LineItem struct {
	ProductID string
	Name      string
	UnitCents money.Cents
	Qty       money.Quantity
	Kind      ItemKind
	Color     string
	Size      string
	ColorA    string
	SizeA     string
	ColorB    string
	SizeB     string
}

type Address struct {
	Name       string
	Phone      string
	Address    string
	PostalCode string
	Country    string
}

type Pricing struct {
	ItemsCents    money.Cents
	ShippingCents money.Cents
	TaxCents      money.Cents
	// TotalCents is authoritative for revenue reporting.
	TotalCents money.Cents
}

// PaymentResult records the gateway identifiers attached to a verified
// order at creation time.
type PaymentResult struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Status           string
}

const PaymentStatusCompleted = "COMPLETED"

// Order is immutable once created except for the two monotonic flags
// IsPaid and IsDelivered; see status.go for the allowed transitions.
type Order struct {
	ID              string
	BuyerID         string
	Items           []LineItem
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	Pricing         Pricing
	IsPaid          bool
	PaidAt          *time.Time
	IsDelivered     bool
	DeliveredAt     *time.Time
	PaymentResult   *PaymentResult
	CreatedAt       time.Time
}

// Stats is the admin dashboard aggregate over all orders.
type Stats struct {
	TotalOrders       int
	DeliveredOrders   int
	PendingDeliveries int
	TotalProducts     int

	// RevenueCents sums TotalCents over paid orders only.
	RevenueCents money.Cents
}
