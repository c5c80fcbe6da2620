package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockGateway_CreatePayment(t *testing.T) {
	gw := NewMockGateway(Config{BaseURL: "http://localhost:8080"})

	s, err := gw.CreatePayment(context.Background(), PaymentRequest{Ref: "ref-1", BookingID: 7, Amount: 500000})
	require.NoError(t, err)
	assert.Equal(t, "ref-1", s.Ref)
	assert.True(t, strings.HasPrefix(s.RedirectURL, "http://localhost:8080/api/v1/mock-payment/"))
	assert.Contains(t, s.RedirectURL, "ref=ref-1")
	assert.True(t, s.ExpiresAt.After(time.Now()))

	token := strings.TrimPrefix(strings.Split(s.RedirectURL, "?")[0], "http://localhost:8080/api/v1/mock-payment/")
	sess, ok := gw.Session(token)
	require.True(t, ok)
	assert.Equal(t, int32(7), sess.BookingID)
	assert.Equal(t, int64(500000), sess.Amount)

	gw.Complete(token)
	_, ok = gw.Session(token)
	assert.False(t, ok)
}

func TestMockGateway_RejectsNonPositiveAmount(t *testing.T) {
	gw := NewMockGateway(Config{})
	_, err := gw.CreatePayment(context.Background(), PaymentRequest{Ref: "r", Amount: 0})
	assert.Error(t, err)
}

func TestMockGateway_ExpiredSession(t *testing.T) {
	gw := NewMockGateway(Config{BaseURL: "http://x"})
	s, err := gw.CreatePayment(context.Background(), PaymentRequest{Ref: "r", Amount: 1, ExpiresIn: time.Nanosecond})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	token := strings.TrimPrefix(strings.Split(s.RedirectURL, "?")[0], "http://x/api/v1/mock-payment/")
	_, ok := gw.Session(token)
	assert.False(t, ok)
}

func TestMockGateway_Refund(t *testing.T) {
	gw := NewMockGateway(Config{})
	require.NoError(t, gw.Refund(context.Background(), "r", 300))
	assert.Equal(t, int64(300), gw.Refunded("r"))
}

func TestSignature(t *testing.T) {
	sig := Sign("secret", "ref", 3, 1000, true, "txn")
	assert.True(t, Verify("secret", sig, "ref", 3, 1000, true, "txn"))
	assert.False(t, Verify("secret", sig, "ref", 3, 1001, true, "txn"))
	assert.False(t, Verify("other", sig, "ref", 3, 1000, true, "txn"))
	assert.True(t, Verify("", "", "ref", 3, 1000, true, "txn"))
}
