package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/lock"
	"rentcar-booking-backend/internal/logger"
)

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code              string     `json:"code"`
	Message           string     `json:"message"`
	Field             string     `json:"field,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	NextAvailableTime *time.Time `json:"next_available_time,omitempty"`
}

type pageResult struct {
	Items    any   `json:"items"`
	Total    int32 `json:"total"`
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(envelope{Success: false, Error: body}); encErr != nil {
		logger.Error("Failed to encode error response", "error", encErr)
	}
}

func classify(err error) (int, *apiError) {
	var (
		verr      *domain.ValidationError
		conflict  *domain.AvailabilityConflictError
		discount  *domain.DiscountIneligibleError
		mismatch  *domain.PaymentMismatchError
		state     *domain.InvalidStateTransitionError
		decodeErr *requestError
	)
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, &apiError{Code: "bad_request", Message: decodeErr.Error(), Field: decodeErr.field}
	case errors.As(err, &verr):
		return http.StatusBadRequest, &apiError{Code: "validation_error", Message: verr.Message, Field: verr.Field}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, &apiError{Code: "unauthorized", Message: err.Error()}
	case errors.Is(err, errForbidden):
		return http.StatusForbidden, &apiError{Code: "forbidden", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, &apiError{Code: "not_found", Message: "resource not found"}
	case errors.As(err, &conflict):
		return http.StatusConflict, &apiError{Code: "availability_conflict", Message: conflict.Error(), NextAvailableTime: conflict.NextAvailableTime}
	case errors.As(err, &state):
		return http.StatusConflict, &apiError{Code: "invalid_state_transition", Message: "operation not permitted"}
	case errors.As(err, &discount):
		return http.StatusUnprocessableEntity, &apiError{Code: "discount_ineligible", Message: discount.Message, Reason: string(discount.Reason)}
	case errors.As(err, &mismatch):
		return http.StatusUnprocessableEntity, &apiError{Code: "payment_mismatch", Message: mismatch.Error(), Reason: mismatch.Reason}
	case errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable, &apiError{Code: "busy", Message: "vehicle is being booked by another request, retry shortly"}
	default:
		return http.StatusInternalServerError, &apiError{Code: "internal", Message: "internal server error"}
	}
}

// requestError is a malformed path, query or body.
type requestError struct {
	field string
	err   error
}

func (e *requestError) Error() string {
	if e.field == "" {
		return "invalid request body: " + e.err.Error()
	}
	return "invalid " + e.field + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }
