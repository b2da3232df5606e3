package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCents(t *testing.T) {
	c, err := NewCents(49900)
	assert.NoError(t, err)
	assert.Equal(t, int64(49900), c.Int64())

	c, err = NewCents(0)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), c.Int64())

	_, err = NewCents(-1)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestNewQuantity(t *testing.T) {
	q, err := NewQuantity(3)
	assert.NoError(t, err)
	assert.Equal(t, 3, q.Int())

	_, err = NewQuantity(0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewQuantity(-2)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
