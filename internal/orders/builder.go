package orders

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidOrder = errors.New("orders: invalid order")

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidOrder, msg)
}

// PaymentOutcome is what the verifier (or the COD path) hands the builder.
// A nil Result means cash on delivery: the order starts unpaid.
type PaymentOutcome struct {
	Method PaymentMethod
	Result *PaymentResult
	PaidAt time.Time
}

func CODOutcome() PaymentOutcome {
	return PaymentOutcome{Method: MethodCOD}
}

func VerifiedOutcome(gatewayOrderID, gatewayPaymentID, signature string, at time.Time) PaymentOutcome {
	return PaymentOutcome{
		Method: MethodRazorpay,
		Result: &PaymentResult{
			GatewayOrderID:   gatewayOrderID,
			GatewayPaymentID: gatewayPaymentID,
			Signature:        signature,
			Status:           PaymentStatusCompleted,
		},
		PaidAt: at,
	}
}

// Build assembles an order from an already-resolved cart. Pure: no I/O,
// no id assignment (the service owns ids). The address is defaulted, not
// rejected: only the country falls back to defaultCountry, the remaining
// fields pass through as given.
func Build(buyerID string, items []LineItem, addr Address, pricing Pricing, outcome PaymentOutcome, defaultCountry string) (*Order, error) {
	if buyerID == "" {
		return nil, invalid("buyer id is required")
	}
	if len(items) == 0 {
		return nil, invalid("empty cart")
	}
	for i, it := range items {
		if it.ProductID == "" {
			return nil, invalid(fmt.Sprintf("item %d: product id is required", i))
		}
		if it.Qty <= 0 {
			return nil, invalid(fmt.Sprintf("item %d: quantity must be greater than zero", i))
		}
		switch it.Kind {
		case KindStandalone, KindCouplePack:
		default:
			return nil, invalid(fmt.Sprintf("item %d: unknown item kind %q", i, it.Kind))
		}
	}
	if addr.Country == "" {
		addr.Country = defaultCountry
	}

	o := &Order{
		BuyerID:         buyerID,
		Items:           append([]LineItem(nil), items...),
		ShippingAddress: addr,
		PaymentMethod:   outcome.Method,
		Pricing:         pricing,
		CreatedAt:       time.Now().UTC(),
	}
	if outcome.Result != nil {
		paidAt := outcome.PaidAt
		if paidAt.IsZero() {
			paidAt = o.CreatedAt
		}
		o.IsPaid = true
		o.PaidAt = &paidAt
		res := *outcome.Result
		o.PaymentResult = &res
	}
	return o, nil
}
