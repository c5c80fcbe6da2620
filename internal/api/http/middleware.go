package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/security"
)

// AuthMiddleware authenticates and authorizes requests by the matched route's security level.
type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		level := SecurityOperator
		if route := mux.CurrentRoute(r); route != nil {
			level = GetSecurityLevel(route.GetName())
		}

		token := extractToken(r)
		if token != "" {
			claims, err := m.tokenManager.ValidateToken(token)
			if err != nil {
				writeError(w, r, unauthorized("invalid token: "+err.Error()))
				return
			}
			r = r.WithContext(withClaims(r.Context(), claims))
		}

		if err := checkSecurityLevel(level, r); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	token := r.Header.Get("Authorization")
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return strings.TrimSpace(token)
}

func checkSecurityLevel(level SecurityLevel, r *http.Request) error {
	claims := ClaimsFromContext(r.Context())
	switch level {
	case SecurityCustomer:
		if claims == nil && customerFromRequest(r) == nil {
			return unauthorized("access token or guest phone required")
		}
	case SecurityOperator:
		if claims == nil {
			return unauthorized("access token required")
		}
		if !claims.IsOperator() {
			return errForbidden
		}
	}
	return nil
}

var errForbidden = errors.New("operator role required")

func unauthorized(msg string) error {
	return &authError{msg: msg}
}

type authError struct{ msg string }

func (e *authError) Error() string { return e.msg }

func (e *authError) Unwrap() error { return domain.ErrUnauthorized }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one line per request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := ""
		if cr := mux.CurrentRoute(r); cr != nil {
			route = cr.GetName()
		}
		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
