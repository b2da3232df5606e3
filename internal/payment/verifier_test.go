package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("test_secret")

	sig := v.Sign("order_abc", "pay_123")
	assert.True(t, v.Verify("order_abc", "pay_123", sig))

	// Deterministic: signing the same ids reproduces the same signature.
	assert.Equal(t, sig, v.Sign("order_abc", "pay_123"))
}

func TestVerifyKnownVector(t *testing.T) {
	// HMAC-SHA256("order_1|pay_1", "secret"), hex encoded.
	v := NewVerifier("secret")
	sig := v.Sign("order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, v.Verify("order_1", "pay_1", sig))
}

func TestVerifyRejectsTamper(t *testing.T) {
	v := NewVerifier("test_secret")
	sig := v.Sign("order_abc", "pay_123")

	assert.False(t, v.Verify("order_abc", "pay_999", sig), "different payment id")
	assert.False(t, v.Verify("order_xyz", "pay_123", sig), "different order id")
	assert.False(t, v.Verify("order_abc", "pay_123", sig[:63]+"0"), "mangled signature")

	other := NewVerifier("other_secret")
	assert.False(t, other.Verify("order_abc", "pay_123", sig), "wrong secret")
}

func TestVerifyFailsClosed(t *testing.T) {
	v := NewVerifier("test_secret")
	sig := v.Sign("order_abc", "pay_123")

	assert.False(t, v.Verify("", "pay_123", sig))
	assert.False(t, v.Verify("order_abc", "", sig))
	assert.False(t, v.Verify("order_abc", "pay_123", ""))
	assert.False(t, NewVerifier("").Verify("order_abc", "pay_123", sig))
}
