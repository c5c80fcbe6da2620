package postgres

import (
	"context"
	"database/sql"
	"errors"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/repository"
)

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

const vehicleColumns = `id, name, license_plate, hourly_rate, seats, fuel_type, transmission, pickup_address, is_available, created_on`

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1 AND deleted_on IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Name, &v.LicensePlate, &v.HourlyRate, &v.Seats, &v.FuelType, &v.Transmission, &v.PickupAddress, &v.IsAvailable, &v.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *vehicleRepository) List(ctx context.Context, onlyAvailable bool) ([]domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE deleted_on IS NULL`
	if onlyAvailable {
		query += ` AND is_available = TRUE`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.LicensePlate, &v.HourlyRate, &v.Seats, &v.FuelType, &v.Transmission, &v.PickupAddress, &v.IsAvailable, &v.CreatedOn); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}
