// Package memory is an in-process implementation of the repositories, used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/repository"
)

// Store keeps every record behind a single mutex so check-then-create is atomic.
type Store struct {
	mu            sync.Mutex
	users         map[int32]domain.User
	vehicles      map[int32]domain.Vehicle
	bookings      map[int32]domain.Booking
	discounts     map[string]domain.Discount
	nextBookingID int32
	nextOtherID   int32

	repository.UserRepository
	repository.VehicleRepository
	repository.BookingRepository
	repository.DiscountRepository
}

func NewStore() *Store {
	s := &Store{
		users:     make(map[int32]domain.User),
		vehicles:  make(map[int32]domain.Vehicle),
		bookings:  make(map[int32]domain.Booking),
		discounts: make(map[string]domain.Discount),
	}
	s.UserRepository = &userRepository{s: s}
	s.VehicleRepository = &vehicleRepository{s: s}
	s.BookingRepository = &bookingRepository{s: s}
	s.DiscountRepository = &discountRepository{s: s}
	return s
}

// PutUser seeds a registered user.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutVehicle seeds a fleet vehicle.
func (s *Store) PutVehicle(v domain.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[v.ID] = v
}

// PutBooking stores a booking as-is, bypassing the availability check. Used for fixtures.
func (s *Store) PutBooking(b domain.Booking) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextBookingID++
		b.ID = s.nextBookingID
	} else if b.ID > s.nextBookingID {
		s.nextBookingID = b.ID
	}
	s.bookings[b.ID] = b
	return b.ID
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type userRepository struct{ s *Store }

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

type vehicleRepository struct{ s *Store }

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

func (r *vehicleRepository) List(ctx context.Context, onlyAvailable bool) ([]domain.Vehicle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Vehicle
	for _, v := range r.s.vehicles {
		if onlyAvailable && !v.IsAvailable {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type discountRepository struct{ s *Store }

func (r *discountRepository) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.discounts[normalizeCode(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (r *discountRepository) Create(ctx context.Context, d *domain.Discount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d.ID == 0 {
		r.s.nextOtherID++
		d.ID = r.s.nextOtherID
	}
	d.Code = normalizeCode(d.Code)
	r.s.discounts[d.Code] = *d
	return nil
}

type bookingRepository struct{ s *Store }

func (r *bookingRepository) CreateIfAvailable(ctx context.Context, b *domain.Booking, opts repository.CreateBookingOptions) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.vehicles[b.VehicleID]; !ok {
		return domain.ErrNotFound
	}

	var conflictEnd *time.Time
	for _, existing := range r.s.bookings {
		if existing.VehicleID != b.VehicleID || !existing.Occupies() {
			continue
		}
		if domain.Overlaps(b.PickupDate, b.ReturnDate.Add(opts.TurnaroundBuffer), existing.PickupDate, existing.ReturnDate.Add(opts.TurnaroundBuffer)) {
			if conflictEnd == nil || existing.ReturnDate.After(*conflictEnd) {
				e := existing.ReturnDate
				conflictEnd = &e
			}
		}
	}
	if conflictEnd != nil {
		next := conflictEnd.Add(opts.NextAvailableBuffer)
		return &domain.AvailabilityConflictError{
			VehicleID:         b.VehicleID,
			Pickup:            b.PickupDate,
			Return:            b.ReturnDate,
			NextAvailableTime: &next,
		}
	}

	if opts.DiscountCode != "" {
		code := normalizeCode(opts.DiscountCode)
		d, ok := r.s.discounts[code]
		if !ok {
			return &domain.DiscountIneligibleError{Code: opts.DiscountCode, Reason: domain.DiscountReasonNotFound, Message: "discount code does not exist"}
		}
		if d.Quantity <= 0 {
			return &domain.DiscountIneligibleError{Code: opts.DiscountCode, Reason: domain.DiscountReasonOutOfStock, Message: "discount code has been fully redeemed"}
		}
		d.Quantity--
		r.s.discounts[code] = d
	}

	r.s.nextBookingID++
	b.ID = r.s.nextBookingID
	if b.CreatedOn.IsZero() {
		b.CreatedOn = time.Now()
	}
	b.UpdatedOn = b.CreatedOn
	r.s.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (r *bookingRepository) GetByPaymentRef(ctx context.Context, ref string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if ref != "" && b.PaymentRef == ref {
			b := b
			return &b, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[b.ID]; !ok {
		return domain.ErrNotFound
	}
	b.UpdatedOn = time.Now()
	r.s.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepository) ListOccupying(ctx context.Context, vehicleID int32, from, to time.Time) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.s.bookings {
		if b.VehicleID == vehicleID && b.Occupies() && domain.Overlaps(from, to, b.PickupDate, b.ReturnDate) {
			out = append(out, b)
		}
	}
	sortByPickup(out)
	return out, nil
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customer domain.CustomerInfo, page, pageSize int32) ([]domain.Booking, int32, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.Booking
	for _, b := range r.s.bookings {
		if belongsTo(b, customer) {
			all = append(all, b)
		}
	}
	// newest first
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedOn.Equal(all[j].CreatedOn) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedOn.After(all[j].CreatedOn)
	})

	total := int32(len(all))
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = total
	}
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *bookingRepository) CountByCustomer(ctx context.Context, customer domain.CustomerInfo) (int, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var nonCancelled, completed int
	for _, b := range r.s.bookings {
		if !belongsTo(b, customer) {
			continue
		}
		if b.Occupies() {
			nonCancelled++
		}
		if b.Status == domain.BookingStatusCompleted {
			completed++
		}
	}
	return nonCancelled, completed, nil
}

func (r *bookingRepository) ListByStatus(ctx context.Context, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.s.bookings {
		for _, st := range statuses {
			if b.Status == st {
				out = append(out, b)
				break
			}
		}
	}
	sortByPickup(out)
	return out, nil
}

func (r *bookingRepository) ListUnpaidPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.s.bookings {
		if b.Status == domain.BookingStatusPending && b.PaymentStatus != domain.PaymentStatusPaid && b.CreatedOn.Before(cutoff) {
			out = append(out, b)
		}
	}
	sortByPickup(out)
	return out, nil
}

func belongsTo(b domain.Booking, c domain.CustomerInfo) bool {
	if c.UserID != 0 {
		return b.UserID != nil && *b.UserID == c.UserID
	}
	if c.Guest != nil && b.Guest != nil {
		return b.Guest.Phone == c.Guest.Phone
	}
	return false
}

func sortByPickup(bs []domain.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].PickupDate.Equal(bs[j].PickupDate) {
			return bs[i].ID < bs[j].ID
		}
		return bs[i].PickupDate.Before(bs[j].PickupDate)
	})
}
