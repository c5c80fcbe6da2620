package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentcar-booking-backend/internal/alert"
	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/lock"
	"rentcar-booking-backend/internal/payment"
	"rentcar-booking-backend/internal/repository/memory"
	"rentcar-booking-backend/internal/service"
)

// 2026-03-02 08:00 UTC, a Monday.
var baseNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return time.Date(2026, 3, day, hour, 0, 0, 0, time.UTC)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type MockAlerter struct {
	mock.Mock
}

func (m *MockAlerter) Alert(ctx context.Context, e alert.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func alertKind(kind string) interface{} {
	return mock.MatchedBy(func(e alert.Event) bool { return e.Kind == kind })
}

// noopLocker leaves all serialization to the repository.
type noopLocker struct{}

func (noopLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	return func() {}, nil
}

type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	alerter  *MockAlerter
	gateway  *payment.MockGateway
	settings service.Settings

	availability service.AvailabilityService
	discounts    service.DiscountService
	quotes       service.QuoteService
	bookings     service.BookingService
	payments     service.PaymentService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, service.DefaultSettings(), lock.NewLocalLocker())
}

func newFixtureWith(t *testing.T, settings service.Settings, locker lock.Locker) *fixture {
	t.Helper()
	f := &fixture{
		store:    memory.NewStore(),
		clock:    &fakeClock{now: baseNow},
		alerter:  new(MockAlerter),
		gateway:  payment.NewMockGateway(payment.Config{BaseURL: "http://rentcar.test"}),
		settings: settings,
	}
	f.alerter.On("Alert", mock.Anything, mock.Anything).Return(nil).Maybe()

	f.store.PutVehicle(domain.Vehicle{ID: 1, Name: "Kia Morning", HourlyRate: 50000, Seats: 4, IsAvailable: true})
	f.store.PutVehicle(domain.Vehicle{ID: 2, Name: "Toyota Vios", HourlyRate: 100000, Seats: 5, IsAvailable: true})
	f.store.PutVehicle(domain.Vehicle{ID: 3, Name: "Ford Ranger", HourlyRate: 120000, Seats: 5, IsAvailable: false})

	vehicles, bookings, discounts := f.store.VehicleRepository, f.store.BookingRepository, f.store.DiscountRepository
	f.availability = service.NewAvailabilityService(vehicles, bookings, settings, f.clock.Now)
	f.discounts = service.NewDiscountService(discounts, bookings, f.clock.Now)
	f.quotes = service.NewQuoteService(vehicles, f.availability, f.discounts, settings)
	f.bookings = service.NewBookingService(vehicles, bookings, f.availability, f.discounts, locker, f.alerter, settings, f.clock.Now)
	f.payments = service.NewPaymentService(bookings, f.gateway, locker, f.alerter, "", f.clock.Now)
	return f
}

func (f *fixture) addDiscount(t *testing.T, d domain.Discount) {
	t.Helper()
	if d.ValidFrom.IsZero() {
		d.ValidFrom = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if d.ValidTo.IsZero() {
		d.ValidTo = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	if d.Type == "" {
		d.Type = domain.DiscountTypePercent
	}
	d.IsActive = true
	require.NoError(t, f.store.DiscountRepository.Create(context.Background(), &d))
}

func (f *fixture) discountQuantity(t *testing.T, code string) int32 {
	t.Helper()
	d, err := f.store.DiscountRepository.GetByCode(context.Background(), code)
	require.NoError(t, err)
	return d.Quantity
}

func registered(id int32) domain.CustomerInfo {
	return domain.CustomerInfo{UserID: id}
}

func guest(phone string) domain.CustomerInfo {
	return domain.CustomerInfo{Guest: &domain.GuestContact{Name: "Guest " + phone, Phone: phone}}
}

func bookingRequest(vehicleID int32, pickup, ret time.Time, customer domain.CustomerInfo) service.CreateBookingRequest {
	return service.CreateBookingRequest{
		QuoteRequest: service.QuoteRequest{
			VehicleID:     vehicleID,
			PickupDate:    pickup,
			ReturnDate:    ret,
			InsuranceTier: domain.InsuranceBasic,
			PickupType:    domain.PickupTypeSelf,
		},
		Customer:    customer,
		PaymentType: domain.PaymentTypeHold,
	}
}

// seedBooking stores a booking directly, bypassing the service.
func (f *fixture) seedBooking(vehicleID int32, pickup, ret time.Time, status domain.BookingStatus, pay domain.PaymentStatus) int32 {
	uid := int32(900)
	return f.store.PutBooking(domain.Booking{
		VehicleID:     vehicleID,
		PickupDate:    pickup,
		ReturnDate:    ret,
		UserID:        &uid,
		PickupType:    domain.PickupTypeSelf,
		InsuranceTier: domain.InsuranceBasic,
		FinalAmount:   1000000,
		DepositAmount: 5000000,
		HoldFee:       500000,
		Status:        status,
		PaymentStatus: pay,
		PaymentType:   domain.PaymentTypeHold,
		CreatedOn:     baseNow,
	})
}

func (f *fixture) get(t *testing.T, id int32) *domain.Booking {
	t.Helper()
	b, err := f.store.BookingRepository.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}
