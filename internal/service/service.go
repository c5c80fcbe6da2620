package service

import (
	"context"
	"time"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/utils"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// Settings are the booking rules shared by every service.
type Settings struct {
	MinDuration      time.Duration
	TurnaroundBuffer time.Duration
	// BufferedConflicts applies TurnaroundBuffer to the hard overlap check as well as to display.
	BufferedConflicts bool
	UnpaidHoldWindow  time.Duration
	// ListingLookahead bounds how far ahead listings look for upcoming bookings.
	ListingLookahead time.Duration
	Fees             utils.FeeSchedule
}

func DefaultSettings() Settings {
	return Settings{
		MinDuration:      4 * time.Hour,
		TurnaroundBuffer: time.Hour,
		UnpaidHoldWindow: 24 * time.Hour,
		ListingLookahead: 30 * 24 * time.Hour,
		Fees:             utils.DefaultFeeSchedule(),
	}
}

func (s Settings) conflictBuffer() time.Duration {
	if s.BufferedConflicts {
		return s.TurnaroundBuffer
	}
	return 0
}

func (s Settings) location() *time.Location {
	if s.Fees.Location == nil {
		return time.UTC
	}
	return s.Fees.Location
}

type AvailabilityService interface {
	CheckAvailability(ctx context.Context, vehicleID int32, pickup, ret time.Time) error
	IsAvailable(ctx context.Context, vehicleID int32, pickup, ret time.Time) (bool, error)
	BookedSlots(ctx context.Context, vehicleID int32, from, to time.Time) ([]domain.BookedSlot, error)
	VehicleAvailability(ctx context.Context, vehicle *domain.Vehicle, now time.Time) (domain.VehicleAvailability, error)
	ListVehicles(ctx context.Context, onlyAvailable bool) ([]domain.VehicleListing, error)
}

type DiscountService interface {
	// Validate never mutates the discount; redemption happens at booking commit.
	Validate(ctx context.Context, code string, amount int64, pickup, ret time.Time, caller domain.CallerContext) (*domain.DiscountResult, error)
	CallerContext(ctx context.Context, customer domain.CustomerInfo) (domain.CallerContext, error)
}

type QuoteService interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, customer *domain.CustomerInfo, bookingID int32) (*domain.Booking, error)
	ListMyBookings(ctx context.Context, customer domain.CustomerInfo, page, pageSize int32) ([]domain.Booking, int32, error)
	CancelBooking(ctx context.Context, customer *domain.CustomerInfo, bookingID int32, reason string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, bookingID int32, status domain.BookingStatus) (*domain.Booking, error)
	CompleteBooking(ctx context.Context, bookingID int32) (*domain.Booking, error)
	AdvanceStatuses(ctx context.Context) (int, error)
	ExpireUnpaid(ctx context.Context) (int, error)
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, customer *domain.CustomerInfo, bookingID int32, paymentType domain.PaymentType) (*domain.Booking, error)
	HandleCallback(ctx context.Context, cb PaymentCallback) (*domain.Booking, error)
	RefundBooking(ctx context.Context, bookingID int32) (*domain.Booking, error)
}

// QuoteRequest prices a window without persisting anything.
type QuoteRequest struct {
	VehicleID        int32                `json:"vehicle_id"`
	PickupDate       time.Time            `json:"pickup_date"`
	ReturnDate       time.Time            `json:"return_date"`
	InsuranceTier    domain.InsuranceTier `json:"insurance_tier"`
	PickupType       domain.PickupType    `json:"pickup_type"`
	DeliveryLocation string               `json:"delivery_location,omitempty"`
	SelfReturn       bool                 `json:"self_return"`
	DiscountCode     string               `json:"discount_code,omitempty"`
	Customer         *domain.CustomerInfo `json:"customer,omitempty"`
}

// Quote is derived entirely from its request; any change to the request means a new quote
// and a fresh discount validation.
type Quote struct {
	VehicleID  int32                  `json:"vehicle_id"`
	PickupDate time.Time              `json:"pickup_date"`
	ReturnDate time.Time              `json:"return_date"`
	Hours      float64                `json:"hours"`
	HourlyRate int64                  `json:"hourly_rate"`
	Breakdown  utils.FeeBreakdown     `json:"breakdown"`
	Packages   []utils.PackagePrice   `json:"packages"`
	Discount   *domain.DiscountResult `json:"discount,omitempty"`
	Available  bool                   `json:"available"`
}

type CreateBookingRequest struct {
	QuoteRequest
	Customer    domain.CustomerInfo `json:"customer"`
	PaymentType domain.PaymentType  `json:"payment_type"`
}

// PaymentCallback is what the gateway reports for a payment attempt.
type PaymentCallback struct {
	PaymentRef    string `json:"payment_ref"`
	Signature     string `json:"signature"`
	BookingID     int32  `json:"booking_id"`
	Amount        int64  `json:"amount"`
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	FailureReason string `json:"failure_reason,omitempty"`
}
