package http

import (
	"context"
	"net/http"
	"strings"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/security"
)

const (
	headerGuestPhone = "X-Guest-Phone"
	headerGuestName  = "X-Guest-Name"
)

type claimsKey struct{}

func withClaims(ctx context.Context, claims *security.UserClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the verified token claims, or nil for anonymous callers.
func ClaimsFromContext(ctx context.Context) *security.UserClaims {
	claims, _ := ctx.Value(claimsKey{}).(*security.UserClaims)
	return claims
}

// customerFromRequest resolves the caller identity: a registered user from the token,
// otherwise a guest from the contact headers. Nil when neither is present.
func customerFromRequest(r *http.Request) *domain.CustomerInfo {
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		return &domain.CustomerInfo{UserID: claims.UserID}
	}
	phone := strings.TrimSpace(r.Header.Get(headerGuestPhone))
	if phone == "" {
		return nil
	}
	return &domain.CustomerInfo{Guest: &domain.GuestContact{
		Name:  strings.TrimSpace(r.Header.Get(headerGuestName)),
		Phone: phone,
	}}
}

// ownerScope is the customer a lookup is restricted to. Operators see every booking.
func ownerScope(r *http.Request) *domain.CustomerInfo {
	if claims := ClaimsFromContext(r.Context()); claims != nil && claims.IsOperator() {
		return nil
	}
	return customerFromRequest(r)
}
