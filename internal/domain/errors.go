package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError is malformed or missing input, rejected before any I/O.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// AvailabilityConflictError is returned when the requested interval overlaps a non-cancelled booking.
type AvailabilityConflictError struct {
	VehicleID         int32
	Pickup            time.Time
	Return            time.Time
	NextAvailableTime *time.Time
}

func (e *AvailabilityConflictError) Error() string {
	msg := fmt.Sprintf("vehicle %d is already booked between %s and %s",
		e.VehicleID, e.Pickup.Format(time.RFC3339), e.Return.Format(time.RFC3339))
	if e.NextAvailableTime != nil {
		msg += fmt.Sprintf("; free again from %s", e.NextAvailableTime.Format(time.RFC3339))
	}
	return msg
}

type DiscountReason string

const (
	DiscountReasonNotFound            DiscountReason = "not_found"
	DiscountReasonInactive            DiscountReason = "inactive"
	DiscountReasonNotStarted          DiscountReason = "not_started"
	DiscountReasonExpired             DiscountReason = "expired"
	DiscountReasonOutOfStock          DiscountReason = "out_of_stock"
	DiscountReasonBelowMinimum        DiscountReason = "below_minimum"
	DiscountReasonOutsideRentalWindow DiscountReason = "outside_rental_window"
	DiscountReasonNewUsersOnly        DiscountReason = "new_users_only"
	DiscountReasonNthOrderMismatch    DiscountReason = "nth_order_mismatch"
	DiscountReasonPreBookingDays      DiscountReason = "pre_booking_days"
)

// DiscountIneligibleError names the first eligibility check a code failed.
type DiscountIneligibleError struct {
	Code    string
	Reason  DiscountReason
	Message string
}

func (e *DiscountIneligibleError) Error() string {
	return fmt.Sprintf("discount %q not applicable: %s", e.Code, e.Message)
}

// InvalidStateTransitionError is an illegal change on the status or payment axis.
type InvalidStateTransitionError struct {
	BookingID int32
	Axis      string
	From      string
	To        string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("booking %d: invalid %s transition %s -> %s", e.BookingID, e.Axis, e.From, e.To)
}

// PaymentMismatchError is a gateway callback that does not match the booking it names.
type PaymentMismatchError struct {
	BookingID int32
	Expected  int64
	Got       int64
	Reason    string
}

func (e *PaymentMismatchError) Error() string {
	return fmt.Sprintf("payment mismatch on booking %d: %s (expected %d, got %d)", e.BookingID, e.Reason, e.Expected, e.Got)
}
