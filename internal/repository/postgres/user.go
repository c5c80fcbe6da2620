package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	query := `SELECT id, email, phone_number, name, role, created_on FROM users WHERE id = $1`
	logger.DatabaseCall("users.GetByID", query, "id", id)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT id, email, phone_number, name, role, created_on FROM users WHERE LOWER(email) = LOWER($1)`
	logger.DatabaseCall("users.GetByEmail", query)
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) scanOne(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	var createdOn time.Time
	err := row.Scan(&u.ID, &u.Email, &u.PhoneNumber, &u.Name, &u.Role, &createdOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedOn = createdOn.Format("2006-01-02")
	return u, nil
}
