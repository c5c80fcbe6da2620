package repository

import (
	"context"
	"time"

	"rentcar-booking-backend/internal/domain"
)

// UserRepository reads registered callers from the identity store.
type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// VehicleRepository is the read side of the fleet catalog.
type VehicleRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	List(ctx context.Context, onlyAvailable bool) ([]domain.Vehicle, error)
}

// CreateBookingOptions controls the atomic check-then-create.
type CreateBookingOptions struct {
	// TurnaroundBuffer is added to both return times when checking conflicts. Zero means strict.
	TurnaroundBuffer time.Duration
	// NextAvailableBuffer is added to the latest conflicting return to report the next available time.
	NextAvailableBuffer time.Duration
	// DiscountCode, when set, has its quantity decremented in the same transaction.
	DiscountCode string
}

type BookingRepository interface {
	// CreateIfAvailable inserts the booking only if no non-cancelled booking of the same vehicle
	// overlaps it, atomically with respect to concurrent creators.
	CreateIfAvailable(ctx context.Context, b *domain.Booking, opts CreateBookingOptions) error
	GetByID(ctx context.Context, id int32) (*domain.Booking, error)
	GetByPaymentRef(ctx context.Context, ref string) (*domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) error
	// ListOccupying returns non-cancelled bookings of the vehicle overlapping [from, to), ordered by pickup.
	ListOccupying(ctx context.Context, vehicleID int32, from, to time.Time) ([]domain.Booking, error)
	ListByCustomer(ctx context.Context, customer domain.CustomerInfo, page, pageSize int32) ([]domain.Booking, int32, error)
	CountByCustomer(ctx context.Context, customer domain.CustomerInfo) (nonCancelled, completed int, err error)
	// ListByStatus returns bookings in any of the statuses, oldest pickup first.
	ListByStatus(ctx context.Context, statuses []domain.BookingStatus) ([]domain.Booking, error)
	// ListUnpaidPendingBefore returns pending, unpaid bookings created before the cutoff.
	ListUnpaidPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
}

type DiscountRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Discount, error)
	Create(ctx context.Context, d *domain.Discount) error
}
