package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/repository"
)

type availabilityService struct {
	vehicleRepo repository.VehicleRepository
	bookingRepo repository.BookingRepository
	settings    Settings
	now         Clock
}

func NewAvailabilityService(vehicleRepo repository.VehicleRepository, bookingRepo repository.BookingRepository, settings Settings, now Clock) AvailabilityService {
	if now == nil {
		now = time.Now
	}
	return &availabilityService{
		vehicleRepo: vehicleRepo,
		bookingRepo: bookingRepo,
		settings:    settings,
		now:         now,
	}
}

// CheckAvailability returns an *AvailabilityConflictError when the window is taken.
// It is advisory; the authoritative check runs inside the booking transaction.
func (s *availabilityService) CheckAvailability(ctx context.Context, vehicleID int32, pickup, ret time.Time) error {
	if !ret.After(pickup) {
		return domain.NewValidationError("return_date", "return date must be after pickup date")
	}
	buf := s.settings.conflictBuffer()
	bookings, err := s.bookingRepo.ListOccupying(ctx, vehicleID, pickup.Add(-buf), ret.Add(buf))
	if err != nil {
		return fmt.Errorf("list occupying bookings: %w", err)
	}

	var next *time.Time
	for _, b := range bookings {
		if domain.Overlaps(pickup, ret.Add(buf), b.PickupDate, b.ReturnDate.Add(buf)) {
			end := b.ReturnDate.Add(s.settings.TurnaroundBuffer)
			if next == nil || end.After(*next) {
				next = &end
			}
		}
	}
	if next != nil {
		return &domain.AvailabilityConflictError{VehicleID: vehicleID, Pickup: pickup, Return: ret, NextAvailableTime: next}
	}
	return nil
}

func (s *availabilityService) IsAvailable(ctx context.Context, vehicleID int32, pickup, ret time.Time) (bool, error) {
	err := s.CheckAvailability(ctx, vehicleID, pickup, ret)
	if err == nil {
		return true, nil
	}
	var conflict *domain.AvailabilityConflictError
	if errors.As(err, &conflict) {
		return false, nil
	}
	return false, err
}

func (s *availabilityService) BookedSlots(ctx context.Context, vehicleID int32, from, to time.Time) ([]domain.BookedSlot, error) {
	if !to.After(from) {
		return nil, domain.NewValidationError("to", "range end must be after range start")
	}
	bookings, err := s.bookingRepo.ListOccupying(ctx, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	slots := make([]domain.BookedSlot, 0, len(bookings))
	for _, b := range bookings {
		slots = append(slots, domain.BookedSlot{BookingID: b.ID, Start: b.PickupDate, End: b.ReturnDate, Status: b.Status})
	}
	return slots, nil
}

func (s *availabilityService) VehicleAvailability(ctx context.Context, vehicle *domain.Vehicle, now time.Time) (domain.VehicleAvailability, error) {
	// Look back far enough to catch a booking that started before now and is still running.
	from := now.Add(-s.settings.ListingLookahead)
	bookings, err := s.bookingRepo.ListOccupying(ctx, vehicle.ID, from, now.Add(s.settings.ListingLookahead))
	if err != nil {
		return domain.VehicleAvailability{}, err
	}
	return ClassifyAvailability(vehicle, bookings, now, s.settings.TurnaroundBuffer, s.settings.location()), nil
}

func (s *availabilityService) ListVehicles(ctx context.Context, onlyAvailable bool) ([]domain.VehicleListing, error) {
	logger.EnterMethod("availabilityService.ListVehicles", "onlyAvailable", onlyAvailable)
	vehicles, err := s.vehicleRepo.List(ctx, onlyAvailable)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]domain.VehicleListing, 0, len(vehicles))
	for i := range vehicles {
		av, err := s.VehicleAvailability(ctx, &vehicles[i], now)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.VehicleListing{Vehicle: vehicles[i], VehicleAvailability: av})
	}
	return out, nil
}

// ClassifyAvailability derives the listing annotation of a vehicle from its non-cancelled bookings.
// Back-to-back bookings separated by less than the buffer are treated as one occupied stretch.
func ClassifyAvailability(vehicle *domain.Vehicle, bookings []domain.Booking, now time.Time, buffer time.Duration, loc *time.Location) domain.VehicleAvailability {
	if !vehicle.IsAvailable {
		return domain.VehicleAvailability{Status: domain.AvailabilityBooked}
	}

	sorted := make([]domain.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Occupies() {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PickupDate.Before(sorted[j].PickupDate) })

	for i, b := range sorted {
		if now.Before(b.PickupDate) || !now.Before(b.ReturnDate) {
			continue
		}
		end := b.ReturnDate
		for _, next := range sorted[i+1:] {
			if next.PickupDate.Before(end.Add(buffer)) && next.ReturnDate.After(end) {
				end = next.ReturnDate
			}
		}
		free := end.Add(buffer)
		status := domain.AvailabilityBooked
		if sameDay(now, free, loc) {
			status = domain.AvailabilitySoonAvailable
		}
		return domain.VehicleAvailability{Status: status, NextAvailableTime: &free, CurrentBookingEnd: &end}
	}

	for _, b := range sorted {
		if b.PickupDate.After(now) {
			return domain.VehicleAvailability{Status: domain.AvailabilityAvailableWithUpcoming}
		}
	}
	return domain.VehicleAvailability{Status: domain.AvailabilityAvailable}
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
