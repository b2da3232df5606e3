package orders

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("orders: order not found")
	ErrInvalidTransition = errors.New("orders: invalid transition")
)

// Both flags are one-way. Delivery can be marked on any order any number
// of times; manual payment applies to COD only (gateway orders are paid
// at creation and immutable on that axis).

// MarkDelivered flips the delivered flag. Returns false when the order
// was already delivered, leaving DeliveredAt untouched.
func (o *Order) MarkDelivered(now time.Time) bool {
	if o.IsDelivered {
		return false
	}
	o.IsDelivered = true
	o.DeliveredAt = &now
	return true
}

// MarkPaid records a manual payment on a COD order. Returns
// (false, ErrInvalidTransition) for gateway orders and (false, nil) when
// the order is already paid.
func (o *Order) MarkPaid(now time.Time) (bool, error) {
	if o.PaymentMethod != MethodCOD {
		return false, ErrInvalidTransition
	}
	if o.IsPaid {
		return false, nil
	}
	o.IsPaid = true
	o.PaidAt = &now
	return true, nil
}
