package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/lock"
	"rentcar-booking-backend/internal/service"
)

func TestCreateBooking_Success(t *testing.T) {
	f := newFixture(t)
	req := bookingRequest(1, at(10, 8), at(10, 16), registered(7))
	req.InsuranceTier = domain.InsurancePremium

	b, err := f.bookings.CreateBooking(context.Background(), req)
	require.NoError(t, err)

	assert.NotZero(t, b.ID)
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.Equal(t, domain.PaymentStatusPending, b.PaymentStatus)
	assert.Equal(t, int64(280000), b.OriginalAmount)
	assert.Equal(t, int64(3920), b.InsuranceFee)
	assert.Equal(t, int64(28000), b.VAT)
	assert.Equal(t, int64(311920), b.FinalAmount)
	assert.Equal(t, int64(500000), b.HoldFee)
	assert.Equal(t, int64(5000000), b.DepositAmount)
	require.NotNil(t, b.UserID)
	assert.Equal(t, int32(7), *b.UserID)
	assert.Nil(t, b.Guest)

	stored := f.get(t, b.ID)
	assert.Equal(t, b.FinalAmount, stored.FinalAmount)
}

func TestCreateBooking_Guest(t *testing.T) {
	f := newFixture(t)
	b, err := f.bookings.CreateBooking(context.Background(), bookingRequest(1, at(10, 8), at(10, 16), guest(" 0901234567 ")))
	require.NoError(t, err)
	require.NotNil(t, b.Guest)
	assert.Equal(t, "0901234567", b.Guest.Phone)
	assert.Nil(t, b.UserID)

	list, total, err := f.bookings.ListMyBookings(context.Background(), guest("0901234567"), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	both := registered(7)
	both.Guest = &domain.GuestContact{Name: "x", Phone: "1"}

	tests := []struct {
		name  string
		req   service.CreateBookingRequest
		field string
	}{
		{"no customer", bookingRequest(1, at(10, 8), at(10, 16), domain.CustomerInfo{}), "customer"},
		{"both identity modes", bookingRequest(1, at(10, 8), at(10, 16), both), "customer"},
		{"guest without phone", bookingRequest(1, at(10, 8), at(10, 16), domain.CustomerInfo{Guest: &domain.GuestContact{Name: "A"}}), "customer.guest.phone"},
		{"too short", bookingRequest(1, at(10, 8), at(10, 10), registered(7)), "return_date"},
		{"in the past", bookingRequest(1, at(1, 8), at(1, 16), registered(7)), "pickup_date"},
		{"closed vehicle", bookingRequest(3, at(10, 8), at(10, 16), registered(7)), "vehicle_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.CreateBooking(ctx, tt.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	req := bookingRequest(1, at(10, 8), at(10, 16), registered(7))
	req.PaymentType = "crypto"
	_, err := f.bookings.CreateBooking(ctx, req)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCreateBooking_DeliveryOutsideOperatingHours(t *testing.T) {
	f := newFixture(t)
	req := bookingRequest(1, at(10, 8), at(10, 23), registered(7))
	req.PickupType = domain.PickupTypeDelivery
	req.DeliveryLocation = "District 1"

	_, err := f.bookings.CreateBooking(context.Background(), req)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)

	req.SelfReturn = true
	b, err := f.bookings.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), b.DeliveryFee)
}

func TestCreateBooking_Conflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.bookings.CreateBooking(ctx, bookingRequest(1, at(10, 10), at(10, 14), registered(1)))
	require.NoError(t, err)

	_, err = f.bookings.CreateBooking(ctx, bookingRequest(1, at(10, 12), at(10, 16), registered(2)))
	var conflict *domain.AvailabilityConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int32(1), conflict.VehicleID)
	require.NotNil(t, conflict.NextAvailableTime)
	assert.Equal(t, at(10, 15), *conflict.NextAvailableTime)

	checkErr := f.availability.CheckAvailability(ctx, 1, at(10, 12), at(10, 16))
	var checked *domain.AvailabilityConflictError
	require.ErrorAs(t, checkErr, &checked)
	assert.Equal(t, *checked.NextAvailableTime, *conflict.NextAvailableTime, "advisory and commit checks agree")

	_, err = f.bookings.CreateBooking(ctx, bookingRequest(1, at(10, 14), at(10, 18), registered(2)))
	assert.NoError(t, err, "touching boundary is not an overlap")
}

func TestCreateBooking_ConcurrentRace(t *testing.T) {
	lockers := map[string]lock.Locker{
		"vehicle lock":    lock.NewLocalLocker(),
		"repository only": noopLocker{},
	}
	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			f := newFixtureWith(t, service.DefaultSettings(), locker)
			ctx := context.Background()

			// Each request overlaps at least its neighbours.
			const workers = 24
			var wg sync.WaitGroup
			var mu sync.Mutex
			var created []*domain.Booking
			conflicts := 0
			start := make(chan struct{})

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					pickup := at(10, 6).Add(time.Duration(i%6) * time.Hour)
					b, err := f.bookings.CreateBooking(ctx, bookingRequest(1, pickup, pickup.Add(5*time.Hour), registered(int32(i+1))))
					mu.Lock()
					defer mu.Unlock()
					var conflict *domain.AvailabilityConflictError
					switch {
					case err == nil:
						created = append(created, b)
					case errors.As(err, &conflict):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(i)
			}
			close(start)
			wg.Wait()

			require.NotEmpty(t, created)
			assert.Equal(t, workers, len(created)+conflicts)
			for i := range created {
				for j := i + 1; j < len(created); j++ {
					a, b := created[i], created[j]
					assert.False(t, domain.Overlaps(a.PickupDate, a.ReturnDate, b.PickupDate, b.ReturnDate),
						"bookings %d and %d overlap", a.ID, b.ID)
				}
			}
		})
	}
}

func TestCreateBooking_Discount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDiscount(t, domain.Discount{Code: "ONCE", Value: 10, Quantity: 1})
	f.addDiscount(t, domain.Discount{Code: "BIG", Value: 10, Quantity: 5, MinOrderAmount: 500000})

	req := bookingRequest(1, at(10, 8), at(10, 16), registered(7))
	req.DiscountCode = "once"
	b, err := f.bookings.CreateBooking(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "ONCE", b.DiscountCode)
	assert.Equal(t, int64(28000), b.DiscountAmount)
	assert.Equal(t, int64(280000+3360+28000-28000), b.FinalAmount)
	assert.Equal(t, int32(0), f.discountQuantity(t, "ONCE"))

	req = bookingRequest(2, at(10, 8), at(10, 16), registered(8))
	req.DiscountCode = "ONCE"
	_, err = f.bookings.CreateBooking(ctx, req)
	var ineligible *domain.DiscountIneligibleError
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, domain.DiscountReasonOutOfStock, ineligible.Reason)

	req = bookingRequest(1, at(11, 8), at(11, 16), registered(9))
	req.DiscountCode = "BIG"
	_, err = f.bookings.CreateBooking(ctx, req)
	require.ErrorAs(t, err, &ineligible)
	assert.Equal(t, domain.DiscountReasonBelowMinimum, ineligible.Reason)
	assert.Equal(t, int32(5), f.discountQuantity(t, "BIG"))
}

func TestCreateBooking_ConflictDoesNotConsumeDiscount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDiscount(t, domain.Discount{Code: "SAVE", Value: 10, Quantity: 2})
	f.seedBooking(1, at(10, 8), at(10, 16), domain.BookingStatusPending, domain.PaymentStatusPending)

	req := bookingRequest(1, at(10, 10), at(10, 18), registered(7))
	req.DiscountCode = "SAVE"
	_, err := f.bookings.CreateBooking(ctx, req)
	var conflict *domain.AvailabilityConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int32(2), f.discountQuantity(t, "SAVE"))
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.bookings.CreateBooking(ctx, bookingRequest(1, at(10, 8), at(10, 16), registered(7)))
	require.NoError(t, err)

	other := registered(8)
	_, err = f.bookings.CancelBooking(ctx, &other, b.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	owner := registered(7)
	cancelled, err := f.bookings.CancelBooking(ctx, &owner, b.ID, " changed plans ")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, "changed plans", cancelled.CancelReason)
	assert.NotNil(t, cancelled.CancelledAt)

	// the interval is free again
	_, err = f.bookings.CreateBooking(ctx, bookingRequest(1, at(10, 8), at(10, 16), registered(8)))
	assert.NoError(t, err)
}

func TestCancelBooking_ConfirmedIsRejected(t *testing.T) {
	f := newFixture(t)
	id := f.seedBooking(1, at(10, 8), at(10, 16), domain.BookingStatusConfirmed, domain.PaymentStatusPaid)

	_, err := f.bookings.CancelBooking(context.Background(), nil, id, "operator")
	var ist *domain.InvalidStateTransitionError
	require.ErrorAs(t, err, &ist)
	assert.Equal(t, domain.BookingStatusConfirmed, f.get(t, id).Status)
	f.alerter.AssertCalled(t, "Alert", mock.Anything, alertKind("invalid_state_transition"))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	unpaid := f.seedBooking(1, at(10, 8), at(10, 16), domain.BookingStatusPending, domain.PaymentStatusPending)
	paid := f.seedBooking(2, at(10, 8), at(10, 16), domain.BookingStatusConfirmed, domain.PaymentStatusPaid)

	_, err := f.bookings.UpdateStatus(ctx, unpaid, domain.BookingStatusConfirmed)
	var ist *domain.InvalidStateTransitionError
	assert.ErrorAs(t, err, &ist, "confirmation requires payment")

	b, err := f.bookings.UpdateStatus(ctx, paid, domain.BookingStatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusOngoing, b.Status)

	_, err = f.bookings.UpdateStatus(ctx, paid, domain.BookingStatusPending)
	assert.ErrorAs(t, err, &ist)

	_, err = f.bookings.UpdateStatus(ctx, paid, "archived")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.bookings.UpdateStatus(ctx, 999, domain.BookingStatusOngoing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	confirmed := f.seedBooking(1, at(10, 8), at(10, 16), domain.BookingStatusConfirmed, domain.PaymentStatusPaid)
	ongoing := f.seedBooking(2, at(10, 8), at(10, 16), domain.BookingStatusOngoing, domain.PaymentStatusPaid)
	pending := f.seedBooking(1, at(12, 8), at(12, 16), domain.BookingStatusPending, domain.PaymentStatusPending)

	b, err := f.bookings.CompleteBooking(ctx, confirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.NotNil(t, b.CompletedAt)

	b, err = f.bookings.CompleteBooking(ctx, ongoing)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)

	_, err = f.bookings.CompleteBooking(ctx, pending)
	var ist *domain.InvalidStateTransitionError
	require.ErrorAs(t, err, &ist)
	assert.Equal(t, domain.BookingStatusPending, f.get(t, pending).Status)

	_, err = f.bookings.CompleteBooking(ctx, confirmed)
	assert.ErrorAs(t, err, &ist, "completed is terminal")
}

func TestAdvanceStatuses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	starting := f.seedBooking(1, at(10, 8), at(10, 16), domain.BookingStatusConfirmed, domain.PaymentStatusPaid)
	finishing := f.seedBooking(2, at(9, 8), at(10, 9), domain.BookingStatusOngoing, domain.PaymentStatusPaid)
	future := f.seedBooking(2, at(12, 8), at(12, 16), domain.BookingStatusConfirmed, domain.PaymentStatusPaid)
	pending := f.seedBooking(1, at(10, 18), at(10, 23), domain.BookingStatusPending, domain.PaymentStatusPending)

	f.clock.Set(at(10, 10))
	n, err := f.bookings.AdvanceStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.BookingStatusOngoing, f.get(t, starting).Status)
	assert.Equal(t, domain.BookingStatusCompleted, f.get(t, finishing).Status)
	assert.Equal(t, domain.BookingStatusConfirmed, f.get(t, future).Status)
	assert.Equal(t, domain.BookingStatusPending, f.get(t, pending).Status)

	n, err = f.bookings.AdvanceStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "re-running is a no-op")
}

func TestExpireUnpaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.seedBooking(1, at(10, 8), at(10, 16), domain.BookingStatusPending, domain.PaymentStatusPending)
	failed := f.seedBooking(2, at(10, 8), at(10, 16), domain.BookingStatusPending, domain.PaymentStatusFailed)
	confirmed := f.seedBooking(1, at(11, 8), at(11, 16), domain.BookingStatusConfirmed, domain.PaymentStatusPaid)

	f.clock.Set(baseNow.Add(23 * time.Hour))
	n, err := f.bookings.ExpireUnpaid(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "still inside the hold window")

	f.clock.Set(baseNow.Add(25 * time.Hour))
	n, err = f.bookings.ExpireUnpaid(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	b := f.get(t, stale)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	assert.Equal(t, service.CancelReasonPaymentTimeout, b.CancelReason)
	assert.Equal(t, domain.BookingStatusCancelled, f.get(t, failed).Status)
	assert.Equal(t, domain.BookingStatusConfirmed, f.get(t, confirmed).Status)
}

func TestGetBooking_LazyAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seedBooking(1, at(10, 8), at(10, 16), domain.BookingStatusConfirmed, domain.PaymentStatusPaid)

	b, err := f.bookings.GetBooking(ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)

	f.clock.Set(at(10, 17))
	b, err = f.bookings.GetBooking(ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, b.Status)
	assert.Equal(t, domain.BookingStatusCompleted, f.get(t, id).Status, "advance is persisted")

	stranger := registered(1)
	_, err = f.bookings.GetBooking(ctx, &stranger, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	owner := registered(900)
	_, err = f.bookings.GetBooking(ctx, &owner, id)
	assert.NoError(t, err)
}

func TestListMyBookings_Paging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.clock.Set(baseNow.Add(time.Duration(i) * time.Minute))
		_, err := f.bookings.CreateBooking(ctx, bookingRequest(1, at(10+i, 8), at(10+i, 16), registered(7)))
		require.NoError(t, err)
	}
	_, err := f.bookings.CreateBooking(ctx, bookingRequest(2, at(10, 8), at(10, 16), registered(8)))
	require.NoError(t, err)

	page, total, err := f.bookings.ListMyBookings(ctx, registered(7), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, at(14, 8), page[0].PickupDate, "newest first")

	page, _, err = f.bookings.ListMyBookings(ctx, registered(7), 3, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	_, _, err = f.bookings.ListMyBookings(ctx, domain.CustomerInfo{}, 1, 10)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
