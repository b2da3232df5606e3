// Package money holds the value types shared by pricing and cart input.
// Amounts are integer paisa (1/100 INR); no floats anywhere.
package money

import "errors"

var (
	ErrNegativeAmount  = errors.New("money: amount must be zero or greater")
	ErrInvalidQuantity = errors.New("money: quantity must be greater than zero")
)

type Cents int64

func NewCents(v int64) (Cents, error) {
	if v < 0 {
		return 0, ErrNegativeAmount
	}
	return Cents(v), nil
}

func (c Cents) Int64() int64 { return int64(c) }

type Quantity int

func NewQuantity(v int) (Quantity, error) {
	if v <= 0 {
		return 0, ErrInvalidQuantity
	}
	return Quantity(v), nil
}

func (q Quantity) Int() int { return int(q) }
