package postgres

import (
	"database/sql"

	_ "github.com/lib/pq"

	"rentcar-booking-backend/internal/repository"
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.VehicleRepository
	repository.BookingRepository
	repository.DiscountRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                 db,
		UserRepository:     NewUserRepository(db),
		VehicleRepository:  NewVehicleRepository(db),
		BookingRepository:  NewBookingRepository(db),
		DiscountRepository: NewDiscountRepository(db),
	}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}
