package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rentcar-booking-backend/internal/logger"
)

// MockGateway implements Gateway in memory. Its checkout URLs point back at this server,
// which completes the payment when the page is visited.
// This is for demo/testing without a real payment provider.
type MockGateway struct {
	baseURL string
	ttl     time.Duration

	mu       sync.Mutex
	sessions map[string]MockSession // keyed by checkout token
	refunds  map[string]int64
}

// MockSession is an open mock checkout.
type MockSession struct {
	Token     string
	Ref       string
	BookingID int32
	Amount    int64
	ExpiresAt time.Time
}

func NewMockGateway(cfg Config) *MockGateway {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MockGateway{
		baseURL:  cfg.BaseURL,
		ttl:      ttl,
		sessions: make(map[string]MockSession),
		refunds:  make(map[string]int64),
	}
}

func (m *MockGateway) CreatePayment(ctx context.Context, req PaymentRequest) (*Session, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive, got %d", req.Amount)
	}
	logger.ExternalServiceCall("MockGateway", "CreatePayment", "ref", req.Ref, "amount", req.Amount)

	ttl := req.ExpiresIn
	if ttl <= 0 {
		ttl = m.ttl
	}
	token := uuid.New().String()
	s := MockSession{
		Token:     token,
		Ref:       req.Ref,
		BookingID: req.BookingID,
		Amount:    req.Amount,
		ExpiresAt: time.Now().Add(ttl),
	}

	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()

	url := fmt.Sprintf("%s/api/v1/mock-payment/%s?ref=%s", m.baseURL, token, req.Ref)
	logger.ExternalServiceResult("MockGateway", "CreatePayment", nil, "ref", req.Ref)
	return &Session{Ref: req.Ref, RedirectURL: url, ExpiresAt: s.ExpiresAt}, nil
}

func (m *MockGateway) Refund(ctx context.Context, ref string, amount int64) error {
	logger.ExternalServiceCall("MockGateway", "Refund", "ref", ref, "amount", amount)
	m.mu.Lock()
	m.refunds[ref] += amount
	m.mu.Unlock()
	logger.ExternalServiceResult("MockGateway", "Refund", nil, "ref", ref)
	return nil
}

// Session returns the open checkout for token. Completed or expired sessions are not found.
func (m *MockGateway) Session(token string) (MockSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || time.Now().After(s.ExpiresAt) {
		return MockSession{}, false
	}
	return s, true
}

// Complete closes the session so a checkout page can only be paid once.
func (m *MockGateway) Complete(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Refunded returns the total refunded against ref.
func (m *MockGateway) Refunded(ref string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refunds[ref]
}
