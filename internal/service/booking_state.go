package service

import (
	"time"

	"rentcar-booking-backend/internal/domain"
)

const (
	axisStatus  = "status"
	axisPayment = "payment_status"
)

var statusTransitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingStatusPending:   {domain.BookingStatusConfirmed, domain.BookingStatusCancelled},
	domain.BookingStatusConfirmed: {domain.BookingStatusOngoing},
	domain.BookingStatusOngoing:   {domain.BookingStatusCompleted},
}

var paymentTransitions = map[domain.PaymentStatus][]domain.PaymentStatus{
	domain.PaymentStatusPending: {domain.PaymentStatusPaid, domain.PaymentStatusFailed},
	// A failed attempt may be retried, which reopens the payment or lands straight on paid.
	domain.PaymentStatusFailed: {domain.PaymentStatusPending, domain.PaymentStatusPaid},
	domain.PaymentStatusPaid:   {domain.PaymentStatusRefunded},
}

// CanTransition reports whether a booking in its current state may move to the given status.
// Entering confirmed or ongoing also requires the booking to be paid.
func CanTransition(b *domain.Booking, to domain.BookingStatus) bool {
	allowed := false
	for _, st := range statusTransitions[b.Status] {
		if st == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	if to == domain.BookingStatusConfirmed || to == domain.BookingStatusOngoing {
		return b.PaymentStatus == domain.PaymentStatusPaid
	}
	return true
}

func CanTransitionPayment(from, to domain.PaymentStatus) bool {
	for _, st := range paymentTransitions[from] {
		if st == to {
			return true
		}
	}
	return false
}

// ApplyStatusTransition moves b to the new status or returns *InvalidStateTransitionError
// leaving b untouched.
func ApplyStatusTransition(b *domain.Booking, to domain.BookingStatus, now time.Time) error {
	if !CanTransition(b, to) {
		return &domain.InvalidStateTransitionError{BookingID: b.ID, Axis: axisStatus, From: string(b.Status), To: string(to)}
	}
	b.Status = to
	b.UpdatedOn = now
	switch to {
	case domain.BookingStatusCompleted:
		b.CompletedAt = &now
	case domain.BookingStatusCancelled:
		b.CancelledAt = &now
	}
	return nil
}

func ApplyPaymentTransition(b *domain.Booking, to domain.PaymentStatus, now time.Time) error {
	if !CanTransitionPayment(b.PaymentStatus, to) {
		return &domain.InvalidStateTransitionError{BookingID: b.ID, Axis: axisPayment, From: string(b.PaymentStatus), To: string(to)}
	}
	b.PaymentStatus = to
	b.UpdatedOn = now
	if to == domain.PaymentStatusPaid {
		b.PaidAt = &now
	}
	return nil
}

// AutoAdvance applies the time-driven transitions that are due at now and reports whether
// anything changed. Running it again on the result is a no-op.
func AutoAdvance(b *domain.Booking, now time.Time) bool {
	changed := false
	if b.Status == domain.BookingStatusConfirmed && b.PaymentStatus == domain.PaymentStatusPaid && !now.Before(b.PickupDate) {
		if ApplyStatusTransition(b, domain.BookingStatusOngoing, now) == nil {
			changed = true
		}
	}
	if b.Status == domain.BookingStatusOngoing && now.After(b.ReturnDate) {
		if ApplyStatusTransition(b, domain.BookingStatusCompleted, now) == nil {
			changed = true
		}
	}
	return changed
}
