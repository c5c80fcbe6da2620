package payment

import (
	"context"
	"time"
)

// Gateway is the payment provider contract. Implementations include the mock
// gateway served by this process and, in production, a hosted checkout provider.
type Gateway interface {
	// CreatePayment opens a checkout session and returns the URL the customer is redirected to.
	CreatePayment(ctx context.Context, req PaymentRequest) (*Session, error)

	// Refund returns a captured payment to the customer.
	Refund(ctx context.Context, ref string, amount int64) error
}

// PaymentRequest describes one payment attempt for a booking.
type PaymentRequest struct {
	Ref         string
	BookingID   int32
	Amount      int64
	Description string
	ExpiresIn   time.Duration
}

// Session is an open checkout.
type Session struct {
	Ref         string
	RedirectURL string
	ExpiresAt   time.Time
}

// Config holds payment gateway configuration
type Config struct {
	Provider       string // "mock"
	BaseURL        string // Server base URL for the mock checkout pages
	CallbackSecret string
	SessionTTL     time.Duration
}
