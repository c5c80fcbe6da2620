package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentcar-booking-backend/internal/alert"
	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/lock"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/repository"
)

// CancelReasonPaymentTimeout marks bookings released by the unpaid-hold reaper.
const CancelReasonPaymentTimeout = "payment_timeout"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type bookingService struct {
	vehicleRepo repository.VehicleRepository
	bookingRepo repository.BookingRepository
	quotes      *quoteService
	locker      lock.Locker
	alerter     alert.Alerter
	settings    Settings
	now         Clock
}

func NewBookingService(
	vehicleRepo repository.VehicleRepository,
	bookingRepo repository.BookingRepository,
	availability AvailabilityService,
	discounts DiscountService,
	locker lock.Locker,
	alerter alert.Alerter,
	settings Settings,
	now Clock,
) BookingService {
	if now == nil {
		now = time.Now
	}
	return &bookingService{
		vehicleRepo: vehicleRepo,
		bookingRepo: bookingRepo,
		quotes: &quoteService{
			vehicleRepo:  vehicleRepo,
			availability: availability,
			discounts:    discounts,
			settings:     settings,
		},
		locker:   locker,
		alerter:  alerter,
		settings: settings,
		now:      now,
	}
}

// CreateBooking re-prices the request, re-validates the discount and creates the booking
// only if the interval is still free at commit time.
func (s *bookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CreateBooking", "vehicleID", req.VehicleID, "pickup", req.PickupDate, "return", req.ReturnDate)

	if err := validateCustomer(&req.Customer); err != nil {
		return nil, err
	}
	switch req.PaymentType {
	case "":
		req.PaymentType = domain.PaymentTypeHold
	case domain.PaymentTypeHold, domain.PaymentTypeFull:
	default:
		return nil, domain.NewValidationError("payment_type", fmt.Sprintf("unknown payment type %q", req.PaymentType))
	}
	qr := req.QuoteRequest
	qr.Customer = &req.Customer
	if err := normalizeQuoteRequest(&qr, s.settings); err != nil {
		return nil, err
	}
	now := s.now()
	if qr.PickupDate.Before(now) {
		return nil, domain.NewValidationError("pickup_date", "pickup date must not be in the past")
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, qr.VehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsAvailable {
		return nil, domain.NewValidationError("vehicle_id", "vehicle is not open for booking")
	}

	// Order-history discount checks count the customer's bookings; redemption is serialized per customer.
	if qr.DiscountCode != "" {
		unlockCustomer, err := s.locker.Lock(ctx, lock.CustomerKey(req.Customer.UserID, guestPhone(req.Customer)))
		if err != nil {
			return nil, fmt.Errorf("lock customer: %w", err)
		}
		defer unlockCustomer()
	}

	q, err := s.quotes.price(ctx, vehicle, qr)
	if err != nil {
		return nil, err
	}
	if q.Discount != nil && !q.Discount.Valid {
		return nil, ineligible(q.Discount)
	}
	if !q.Breakdown.Confirmable {
		return nil, domain.NewValidationError("return_date", q.Breakdown.BlockReason)
	}

	b := newBooking(qr, req, q, now)

	unlock, err := s.locker.Lock(ctx, lock.VehicleKey(vehicle.ID))
	if err != nil {
		return nil, fmt.Errorf("lock vehicle %d: %w", vehicle.ID, err)
	}
	defer unlock()

	opts := repository.CreateBookingOptions{
		TurnaroundBuffer:    s.settings.conflictBuffer(),
		NextAvailableBuffer: s.settings.TurnaroundBuffer,
	}
	if q.Discount != nil {
		opts.DiscountCode = q.Discount.Code
	}
	if err := s.bookingRepo.CreateIfAvailable(ctx, b, opts); err != nil {
		var conflict *domain.AvailabilityConflictError
		if errors.As(err, &conflict) {
			logger.Info("Booking rejected, interval taken", "vehicleID", vehicle.ID, "pickup", qr.PickupDate, "return", qr.ReturnDate)
		} else {
			logger.ExitMethodWithError("bookingService.CreateBooking", err, "vehicleID", vehicle.ID)
		}
		return nil, err
	}

	logger.WithBooking(b.ID).Info("Booking created",
		"vehicleID", b.VehicleID, "finalAmount", b.FinalAmount, "discountCode", b.DiscountCode, "guest", b.Guest != nil)
	return b, nil
}

func newBooking(qr QuoteRequest, req CreateBookingRequest, q *Quote, now time.Time) *domain.Booking {
	b := &domain.Booking{
		VehicleID:        qr.VehicleID,
		PickupDate:       qr.PickupDate,
		ReturnDate:       qr.ReturnDate,
		PickupType:       qr.PickupType,
		DeliveryLocation: qr.DeliveryLocation,
		SelfReturn:       qr.SelfReturn,
		InsuranceTier:    qr.InsuranceTier,
		OriginalAmount:   q.Breakdown.RentalFee,
		InsuranceFee:     q.Breakdown.InsuranceFee,
		DeliveryFee:      q.Breakdown.DeliveryFee,
		VAT:              q.Breakdown.VAT,
		DiscountAmount:   q.Breakdown.DiscountAmount,
		FinalAmount:      q.Breakdown.FinalAmount,
		DepositAmount:    q.Breakdown.DepositAmount,
		HoldFee:          q.Breakdown.HoldFee,
		Status:           domain.BookingStatusPending,
		PaymentStatus:    domain.PaymentStatusPending,
		PaymentType:      req.PaymentType,
		CreatedOn:        now,
		UpdatedOn:        now,
	}
	if q.Discount != nil && q.Discount.Valid {
		b.DiscountCode = q.Discount.Code
	}
	if req.Customer.UserID != 0 {
		id := req.Customer.UserID
		b.UserID = &id
	} else {
		g := *req.Customer.Guest
		b.Guest = &g
	}
	return b
}

// GetBooking returns the booking after applying any auto-transition that is due.
// A non-nil customer restricts the lookup to that customer's own bookings.
func (s *bookingService) GetBooking(ctx context.Context, customer *domain.CustomerInfo, bookingID int32) (*domain.Booking, error) {
	b, err := s.load(ctx, customer, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.advance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *bookingService) ListMyBookings(ctx context.Context, customer domain.CustomerInfo, page, pageSize int32) ([]domain.Booking, int32, error) {
	if err := validateCustomer(&customer); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	bookings, total, err := s.bookingRepo.ListByCustomer(ctx, customer, page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	for i := range bookings {
		if err := s.advance(ctx, &bookings[i]); err != nil {
			return nil, 0, err
		}
	}
	return bookings, total, nil
}

// CancelBooking releases a pending booking. Confirmed and later bookings cannot be cancelled.
func (s *bookingService) CancelBooking(ctx context.Context, customer *domain.CustomerInfo, bookingID int32, reason string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CancelBooking", "bookingID", bookingID)
	unlock, err := s.locker.Lock(ctx, lock.BookingKey(bookingID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.load(ctx, customer, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, b, domain.BookingStatusCancelled); err != nil {
		return nil, err
	}
	b.CancelReason = strings.TrimSpace(reason)
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}
	logger.WithBooking(b.ID).Info("Booking cancelled", "reason", b.CancelReason)
	return b, nil
}

// UpdateStatus is the operator's direct status change; only single legal steps are accepted.
func (s *bookingService) UpdateStatus(ctx context.Context, bookingID int32, status domain.BookingStatus) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.UpdateStatus", "bookingID", bookingID, "status", status)
	if !status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown booking status %q", status))
	}
	unlock, err := s.locker.Lock(ctx, lock.BookingKey(bookingID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.load(ctx, nil, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, b, status); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return nil, err
	}
	logger.WithBooking(b.ID).Info("Booking status updated", "status", b.Status)
	return b, nil
}

// CompleteBooking closes a confirmed or ongoing booking. A confirmed booking passes through ongoing.
func (s *bookingService) CompleteBooking(ctx context.Context, bookingID int32) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CompleteBooking", "bookingID", bookingID)
	unlock, err := s.locker.Lock(ctx, lock.BookingKey(bookingID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.load(ctx, nil, bookingID)
	if err != nil {
		return nil, err
	}
	working := *b
	if working.Status == domain.BookingStatusConfirmed {
		if err := s.transition(ctx, &working, domain.BookingStatusOngoing); err != nil {
			return nil, err
		}
	}
	if err := s.transition(ctx, &working, domain.BookingStatusCompleted); err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Update(ctx, &working); err != nil {
		return nil, err
	}
	logger.WithBooking(working.ID).Info("Booking completed by operator")
	return &working, nil
}

// AdvanceStatuses runs the time-driven transitions over every confirmed and ongoing booking.
func (s *bookingService) AdvanceStatuses(ctx context.Context) (int, error) {
	bookings, err := s.bookingRepo.ListByStatus(ctx, []domain.BookingStatus{domain.BookingStatusConfirmed, domain.BookingStatusOngoing})
	if err != nil {
		return 0, fmt.Errorf("list active bookings: %w", err)
	}
	now := s.now()
	advanced := 0
	var errs []error
	for i := range bookings {
		b := &bookings[i]
		if !advanceDue(b, now) {
			continue
		}
		changed, err := s.advanceOne(ctx, b)
		if err != nil {
			logger.WithBooking(b.ID).Error("Failed to persist status advance", "error", err)
			errs = append(errs, err)
			continue
		}
		if changed {
			logger.WithBooking(b.ID).Info("Booking status advanced", "status", b.Status)
			advanced++
		}
	}
	return advanced, errors.Join(errs...)
}

// ExpireUnpaid cancels pending bookings whose payment hold window has elapsed.
func (s *bookingService) ExpireUnpaid(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.settings.UnpaidHoldWindow)
	bookings, err := s.bookingRepo.ListUnpaidPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list unpaid bookings: %w", err)
	}
	expired := 0
	var errs []error
	for _, candidate := range bookings {
		if err := s.expireOne(ctx, candidate.ID, cutoff); err != nil {
			errs = append(errs, err)
			continue
		}
		expired++
	}
	return expired, errors.Join(errs...)
}

func (s *bookingService) expireOne(ctx context.Context, bookingID int32, cutoff time.Time) error {
	unlock, err := s.locker.Lock(ctx, lock.BookingKey(bookingID))
	if err != nil {
		return err
	}
	defer unlock()

	// Re-read under the lock; a payment may have landed since the listing.
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != domain.BookingStatusPending || b.PaymentStatus == domain.PaymentStatusPaid || !b.CreatedOn.Before(cutoff) {
		return nil
	}
	if err := s.transition(ctx, b, domain.BookingStatusCancelled); err != nil {
		return err
	}
	b.CancelReason = CancelReasonPaymentTimeout
	if err := s.bookingRepo.Update(ctx, b); err != nil {
		return err
	}
	logger.WithBooking(b.ID).Info("Unpaid booking expired", "createdOn", b.CreatedOn)
	return nil
}

func (s *bookingService) load(ctx context.Context, customer *domain.CustomerInfo, bookingID int32) (*domain.Booking, error) {
	if bookingID <= 0 {
		return nil, domain.NewValidationError("booking_id", "booking id is required")
	}
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if customer != nil && !ownedBy(b, *customer) {
		return nil, domain.ErrNotFound
	}
	return b, nil
}

// advance applies due auto-transitions and persists them.
func (s *bookingService) advance(ctx context.Context, b *domain.Booking) error {
	if !advanceDue(b, s.now()) {
		return nil
	}
	changed, err := s.advanceOne(ctx, b)
	if err != nil {
		return err
	}
	if changed {
		logger.WithBooking(b.ID).Debug("Booking status advanced on read", "status", b.Status)
	}
	return nil
}

// advanceOne re-reads the booking under its lock, then advances and persists it.
// b is replaced with the stored row.
func (s *bookingService) advanceOne(ctx context.Context, b *domain.Booking) (bool, error) {
	unlock, err := s.locker.Lock(ctx, lock.BookingKey(b.ID))
	if err != nil {
		return false, err
	}
	defer unlock()

	fresh, err := s.bookingRepo.GetByID(ctx, b.ID)
	if err != nil {
		return false, err
	}
	if !AutoAdvance(fresh, s.now()) {
		*b = *fresh
		return false, nil
	}
	if err := s.bookingRepo.Update(ctx, fresh); err != nil {
		return false, err
	}
	*b = *fresh
	return true, nil
}

func guestPhone(c domain.CustomerInfo) string {
	if c.Guest == nil {
		return ""
	}
	return c.Guest.Phone
}

func advanceDue(b *domain.Booking, now time.Time) bool {
	snapshot := *b
	return AutoAdvance(&snapshot, now)
}

// transition applies a status change and raises an operator alert when it is illegal.
func (s *bookingService) transition(ctx context.Context, b *domain.Booking, to domain.BookingStatus) error {
	err := ApplyStatusTransition(b, to, s.now())
	if err != nil {
		raiseTransitionAlert(ctx, s.alerter, b.ID, err)
	}
	return err
}

func raiseTransitionAlert(ctx context.Context, alerter alert.Alerter, bookingID int32, err error) {
	var ist *domain.InvalidStateTransitionError
	if !errors.As(err, &ist) {
		return
	}
	logger.WithBooking(bookingID).Error("Invalid state transition", "axis", ist.Axis, "from", ist.From, "to", ist.To)
	notify(ctx, alerter, alert.Event{
		Kind:      "invalid_state_transition",
		Severity:  alert.SeverityWarning,
		BookingID: bookingID,
		Message:   ist.Error(),
		Fields:    map[string]any{"axis": ist.Axis, "from": ist.From, "to": ist.To},
	})
}

func notify(ctx context.Context, alerter alert.Alerter, e alert.Event) {
	if alerter == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if err := alerter.Alert(ctx, e); err != nil {
		logger.Error("Failed to deliver operator alert", "kind", e.Kind, "booking_id", e.BookingID, "error", err)
	}
}

func validateCustomer(c *domain.CustomerInfo) error {
	if c.UserID != 0 && c.Guest != nil {
		return domain.NewValidationError("customer", "either a user id or guest contact must be given, not both")
	}
	if c.UserID != 0 {
		if c.UserID < 0 {
			return domain.NewValidationError("customer.user_id", "invalid user id")
		}
		return nil
	}
	if c.Guest == nil {
		return domain.NewValidationError("customer", "a user id or guest contact is required")
	}
	c.Guest.Name = strings.TrimSpace(c.Guest.Name)
	c.Guest.Phone = strings.TrimSpace(c.Guest.Phone)
	c.Guest.Email = strings.TrimSpace(c.Guest.Email)
	if c.Guest.Name == "" {
		return domain.NewValidationError("customer.guest.name", "guest name is required")
	}
	if c.Guest.Phone == "" {
		return domain.NewValidationError("customer.guest.phone", "guest phone is required")
	}
	return nil
}

func ownedBy(b *domain.Booking, c domain.CustomerInfo) bool {
	if c.UserID != 0 {
		return b.UserID != nil && *b.UserID == c.UserID
	}
	return c.Guest != nil && b.Guest != nil && b.Guest.Phone == strings.TrimSpace(c.Guest.Phone)
}
