package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/repository"
)

type discountRepository struct {
	db *sql.DB
}

func NewDiscountRepository(db *sql.DB) repository.DiscountRepository {
	return &discountRepository{db: db}
}

func (r *discountRepository) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	d := &domain.Discount{}
	query := `SELECT id, code, type, value, max_discount_amount, min_order_amount, quantity, valid_from, valid_to,
	                 rental_start, rental_end, for_new_users_only, for_nth_order, require_pre_booking_days, exclusive, is_active, created_on
	          FROM discounts WHERE code = $1`
	err := r.db.QueryRowContext(ctx, query, normalizeCode(code)).Scan(
		&d.ID, &d.Code, &d.Type, &d.Value, &d.MaxDiscountAmount, &d.MinOrderAmount, &d.Quantity, &d.ValidFrom, &d.ValidTo,
		&d.RentalStart, &d.RentalEnd, &d.ForNewUsersOnly, &d.ForNthOrder, &d.RequirePreBookingDays, &d.Exclusive, &d.IsActive, &d.CreatedOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *discountRepository) Create(ctx context.Context, d *domain.Discount) error {
	d.Code = normalizeCode(d.Code)
	query := `INSERT INTO discounts (code, type, value, max_discount_amount, min_order_amount, quantity, valid_from, valid_to,
	                                 rental_start, rental_end, for_new_users_only, for_nth_order, require_pre_booking_days, exclusive, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id, created_on`
	return r.db.QueryRowContext(ctx, query,
		d.Code, d.Type, d.Value, d.MaxDiscountAmount, d.MinOrderAmount, d.Quantity, d.ValidFrom, d.ValidTo,
		d.RentalStart, d.RentalEnd, d.ForNewUsersOnly, d.ForNthOrder, d.RequirePreBookingDays, d.Exclusive, d.IsActive,
	).Scan(&d.ID, &d.CreatedOn)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
