package http

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/service"
)

type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) CheckAvailability(ctx context.Context, vehicleID int32, pickup, ret time.Time) error {
	args := m.Called(ctx, vehicleID, pickup, ret)
	return args.Error(0)
}

func (m *MockAvailabilityService) IsAvailable(ctx context.Context, vehicleID int32, pickup, ret time.Time) (bool, error) {
	args := m.Called(ctx, vehicleID, pickup, ret)
	return args.Bool(0), args.Error(1)
}

func (m *MockAvailabilityService) BookedSlots(ctx context.Context, vehicleID int32, from, to time.Time) ([]domain.BookedSlot, error) {
	args := m.Called(ctx, vehicleID, from, to)
	return args.Get(0).([]domain.BookedSlot), args.Error(1)
}

func (m *MockAvailabilityService) VehicleAvailability(ctx context.Context, vehicle *domain.Vehicle, now time.Time) (domain.VehicleAvailability, error) {
	args := m.Called(ctx, vehicle, now)
	return args.Get(0).(domain.VehicleAvailability), args.Error(1)
}

func (m *MockAvailabilityService) ListVehicles(ctx context.Context, onlyAvailable bool) ([]domain.VehicleListing, error) {
	args := m.Called(ctx, onlyAvailable)
	return args.Get(0).([]domain.VehicleListing), args.Error(1)
}

type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) Quote(ctx context.Context, req service.QuoteRequest) (*service.Quote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Quote), args.Error(1)
}

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) booking(args mock.Arguments) (*domain.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingService) CreateBooking(ctx context.Context, req service.CreateBookingRequest) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, req))
}

func (m *MockBookingService) GetBooking(ctx context.Context, customer *domain.CustomerInfo, bookingID int32) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, customer, bookingID))
}

func (m *MockBookingService) ListMyBookings(ctx context.Context, customer domain.CustomerInfo, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, customer, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}

func (m *MockBookingService) CancelBooking(ctx context.Context, customer *domain.CustomerInfo, bookingID int32, reason string) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, customer, bookingID, reason))
}

func (m *MockBookingService) UpdateStatus(ctx context.Context, bookingID int32, status domain.BookingStatus) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, bookingID, status))
}

func (m *MockBookingService) CompleteBooking(ctx context.Context, bookingID int32) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, bookingID))
}

func (m *MockBookingService) AdvanceStatuses(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingService) ExpireUnpaid(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) booking(args mock.Arguments) (*domain.Booking, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockPaymentService) InitiatePayment(ctx context.Context, customer *domain.CustomerInfo, bookingID int32, paymentType domain.PaymentType) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, customer, bookingID, paymentType))
}

func (m *MockPaymentService) HandleCallback(ctx context.Context, cb service.PaymentCallback) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, cb))
}

func (m *MockPaymentService) RefundBooking(ctx context.Context, bookingID int32) (*domain.Booking, error) {
	return m.booking(m.Called(ctx, bookingID))
}
