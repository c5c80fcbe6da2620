package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentcar-booking-backend/internal/alert"
	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/lock"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/payment"
	"rentcar-booking-backend/internal/repository"
)

type paymentService struct {
	bookingRepo    repository.BookingRepository
	gateway        payment.Gateway
	locker         lock.Locker
	alerter        alert.Alerter
	callbackSecret string
	now            Clock
}

func NewPaymentService(
	bookingRepo repository.BookingRepository,
	gateway payment.Gateway,
	locker lock.Locker,
	alerter alert.Alerter,
	callbackSecret string,
	now Clock,
) PaymentService {
	if now == nil {
		now = time.Now
	}
	return &paymentService{
		bookingRepo:    bookingRepo,
		gateway:        gateway,
		locker:         locker,
		alerter:        alerter,
		callbackSecret: callbackSecret,
		now:            now,
	}
}

// InitiatePayment opens a gateway checkout for the amount due under paymentType.
// A failed payment can be retried; each attempt gets a fresh payment reference.
func (s *paymentService) InitiatePayment(ctx context.Context, customer *domain.CustomerInfo, bookingID int32, paymentType domain.PaymentType) (*domain.Booking, error) {
	logger.EnterMethod("paymentService.InitiatePayment", "bookingID", bookingID, "paymentType", paymentType)
	switch paymentType {
	case "":
		paymentType = domain.PaymentTypeHold
	case domain.PaymentTypeHold, domain.PaymentTypeFull:
	default:
		return nil, domain.NewValidationError("payment_type", fmt.Sprintf("unknown payment type %q", paymentType))
	}

	unlock, err := s.locker.Lock(ctx, lock.BookingKey(bookingID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if customer != nil && !ownedBy(b, *customer) {
		return nil, domain.ErrNotFound
	}
	if b.Status != domain.BookingStatusPending {
		return nil, domain.NewValidationError("booking_id", fmt.Sprintf("booking is %s and not awaiting payment", b.Status))
	}

	working := *b
	switch working.PaymentStatus {
	case domain.PaymentStatusPending:
	case domain.PaymentStatusFailed:
		if err := s.paymentTransition(ctx, &working, domain.PaymentStatusPending); err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewValidationError("booking_id", fmt.Sprintf("booking payment is already %s", working.PaymentStatus))
	}

	working.PaymentType = paymentType
	working.PaymentRef = uuid.New().String()
	working.PaymentFailCause = ""
	session, err := s.gateway.CreatePayment(ctx, payment.PaymentRequest{
		Ref:         working.PaymentRef,
		BookingID:   working.ID,
		Amount:      working.AmountDue(),
		Description: fmt.Sprintf("Booking #%d (%s)", working.ID, paymentType),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	working.PaymentURL = session.RedirectURL

	if err := s.bookingRepo.Update(ctx, &working); err != nil {
		return nil, err
	}
	logger.WithBooking(working.ID).Info("Payment initiated", "ref", working.PaymentRef, "amount", working.AmountDue())
	return &working, nil
}

// HandleCallback applies a gateway result. A booking is only marked paid when the callback
// matches it exactly; anything else forces the payment to failed and alerts an operator.
func (s *paymentService) HandleCallback(ctx context.Context, cb PaymentCallback) (*domain.Booking, error) {
	logger.EnterMethod("paymentService.HandleCallback", "ref", cb.PaymentRef, "success", cb.Success)
	if cb.PaymentRef == "" {
		return nil, domain.NewValidationError("payment_ref", "payment reference is required")
	}
	if !payment.Verify(s.callbackSecret, cb.Signature, cb.PaymentRef, cb.BookingID, cb.Amount, cb.Success, cb.TransactionID) {
		logger.Warn("Payment callback with bad signature", "ref", cb.PaymentRef)
		return nil, domain.ErrUnauthorized
	}

	found, err := s.bookingRepo.GetByPaymentRef(ctx, cb.PaymentRef)
	if err != nil {
		return nil, err
	}
	unlock, err := s.locker.Lock(ctx, lock.BookingKey(found.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.bookingRepo.GetByID(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if b.PaymentRef != cb.PaymentRef {
		// Superseded by a newer attempt.
		return nil, s.mismatch(ctx, b, cb, "payment reference is no longer current", false)
	}

	if b.PaymentStatus == domain.PaymentStatusPaid || b.PaymentStatus == domain.PaymentStatusRefunded {
		if cb.Success && cb.TransactionID == b.PaymentTxnID && cb.Amount == b.PaidAmount {
			return b, nil
		}
		return nil, s.mismatch(ctx, b, cb, fmt.Sprintf("callback for a booking already %s", b.PaymentStatus), false)
	}
	if cb.BookingID != 0 && cb.BookingID != b.ID {
		return nil, s.mismatch(ctx, b, cb, fmt.Sprintf("callback names booking %d", cb.BookingID), true)
	}
	if b.Status == domain.BookingStatusCancelled {
		return nil, s.mismatch(ctx, b, cb, "booking is cancelled", true)
	}

	working := *b
	if !cb.Success {
		if working.PaymentStatus == domain.PaymentStatusPending {
			if err := s.paymentTransition(ctx, &working, domain.PaymentStatusFailed); err != nil {
				return nil, err
			}
		}
		working.PaymentFailCause = cb.FailureReason
		if err := s.bookingRepo.Update(ctx, &working); err != nil {
			return nil, err
		}
		logger.WithBooking(working.ID).Info("Payment failed", "reason", cb.FailureReason)
		return &working, nil
	}

	if cb.Amount != working.AmountDue() {
		return nil, s.mismatch(ctx, b, cb, "amount does not match the amount due", true)
	}

	now := s.now()
	if err := s.paymentTransition(ctx, &working, domain.PaymentStatusPaid); err != nil {
		return nil, err
	}
	working.PaidAmount = cb.Amount
	working.PaymentTxnID = cb.TransactionID
	working.PaymentFailCause = ""
	if err := ApplyStatusTransition(&working, domain.BookingStatusConfirmed, now); err != nil {
		raiseTransitionAlert(ctx, s.alerter, working.ID, err)
		return nil, err
	}
	AutoAdvance(&working, now)

	if err := s.bookingRepo.Update(ctx, &working); err != nil {
		return nil, err
	}
	logger.WithBooking(working.ID).Info("Payment confirmed", "amount", working.PaidAmount, "txn", working.PaymentTxnID, "status", working.Status)
	return &working, nil
}

// RefundBooking returns a captured payment once the booking is cancelled or completed.
func (s *paymentService) RefundBooking(ctx context.Context, bookingID int32) (*domain.Booking, error) {
	logger.EnterMethod("paymentService.RefundBooking", "bookingID", bookingID)
	unlock, err := s.locker.Lock(ctx, lock.BookingKey(bookingID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.Status.Terminal() {
		return nil, domain.NewValidationError("booking_id", fmt.Sprintf("booking is %s; only cancelled or completed bookings can be refunded", b.Status))
	}
	working := *b
	if err := s.paymentTransition(ctx, &working, domain.PaymentStatusRefunded); err != nil {
		return nil, err
	}
	if err := s.gateway.Refund(ctx, working.PaymentRef, working.PaidAmount); err != nil {
		logger.ExitMethodWithError("paymentService.RefundBooking", err, "bookingID", bookingID)
		return nil, fmt.Errorf("refund payment: %w", err)
	}
	if err := s.bookingRepo.Update(ctx, &working); err != nil {
		return nil, err
	}
	logger.WithBooking(working.ID).Info("Payment refunded", "amount", working.PaidAmount)
	return &working, nil
}

func (s *paymentService) paymentTransition(ctx context.Context, b *domain.Booking, to domain.PaymentStatus) error {
	err := ApplyPaymentTransition(b, to, s.now())
	if err != nil {
		raiseTransitionAlert(ctx, s.alerter, b.ID, err)
	}
	return err
}

// mismatch records a callback that does not fit its booking. With forceFailed an unpaid booking
// is moved to failed so it is never left looking payable by this callback.
func (s *paymentService) mismatch(ctx context.Context, b *domain.Booking, cb PaymentCallback, reason string, forceFailed bool) error {
	merr := &domain.PaymentMismatchError{BookingID: b.ID, Expected: b.AmountDue(), Got: cb.Amount, Reason: reason}
	logger.WithBooking(b.ID).Error("Payment mismatch", "reason", reason, "expected", merr.Expected, "got", merr.Got, "ref", cb.PaymentRef)

	if forceFailed && b.PaymentStatus != domain.PaymentStatusPaid && b.PaymentStatus != domain.PaymentStatusRefunded {
		working := *b
		if working.PaymentStatus == domain.PaymentStatusPending {
			if err := ApplyPaymentTransition(&working, domain.PaymentStatusFailed, s.now()); err != nil {
				return err
			}
		}
		working.PaymentFailCause = "payment mismatch: " + reason
		if err := s.bookingRepo.Update(ctx, &working); err != nil {
			return errors.Join(merr, err)
		}
		*b = working
	}

	notify(ctx, s.alerter, alert.Event{
		Kind:      "payment_mismatch",
		Severity:  alert.SeverityCritical,
		BookingID: b.ID,
		Message:   merr.Error(),
		Fields: map[string]any{
			"payment_ref":    cb.PaymentRef,
			"transaction_id": cb.TransactionID,
			"expected":       merr.Expected,
			"got":            merr.Got,
			"payment_status": b.PaymentStatus,
		},
	})
	return merr
}
