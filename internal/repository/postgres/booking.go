package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/repository"
)

// exclusionViolation is raised by the bookings_no_overlap constraint.
const exclusionViolation = "23P01"

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, vehicle_id, pickup_date, return_date, user_id, guest_name, guest_phone, guest_email,
	pickup_type, delivery_location, self_return, insurance_tier,
	original_amount, insurance_fee, delivery_fee, vat, discount_code, discount_amount, final_amount, deposit_amount, hold_fee,
	status, payment_status, payment_type, paid_amount, paid_at, payment_ref, payment_txn_id, payment_url, payment_fail_cause,
	cancel_reason, cancelled_at, completed_at, created_on, updated_on`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var userID sql.NullInt32
	var guestName, guestPhone, guestEmail string
	err := row.Scan(
		&b.ID, &b.VehicleID, &b.PickupDate, &b.ReturnDate, &userID, &guestName, &guestPhone, &guestEmail,
		&b.PickupType, &b.DeliveryLocation, &b.SelfReturn, &b.InsuranceTier,
		&b.OriginalAmount, &b.InsuranceFee, &b.DeliveryFee, &b.VAT, &b.DiscountCode, &b.DiscountAmount, &b.FinalAmount, &b.DepositAmount, &b.HoldFee,
		&b.Status, &b.PaymentStatus, &b.PaymentType, &b.PaidAmount, &b.PaidAt, &b.PaymentRef, &b.PaymentTxnID, &b.PaymentURL, &b.PaymentFailCause,
		&b.CancelReason, &b.CancelledAt, &b.CompletedAt, &b.CreatedOn, &b.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int32
		b.UserID = &id
	} else {
		b.Guest = &domain.GuestContact{Name: guestName, Phone: guestPhone, Email: guestEmail}
	}
	return b, nil
}

func guestFields(b *domain.Booking) (name, phone, email string) {
	if b.Guest == nil {
		return "", "", ""
	}
	return b.Guest.Name, b.Guest.Phone, b.Guest.Email
}

// CreateIfAvailable locks the vehicle row so concurrent creators for the same vehicle run one at a time,
// re-checks overlap inside the transaction and consumes the discount in the same commit.
func (r *bookingRepository) CreateIfAvailable(ctx context.Context, b *domain.Booking, opts repository.CreateBookingOptions) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID int32
	lockQuery := `SELECT id FROM vehicles WHERE id = $1 FOR UPDATE`
	logger.DatabaseCall("bookings.CreateIfAvailable.lock", lockQuery, "vehicle_id", b.VehicleID)
	if err := tx.QueryRowContext(ctx, lockQuery, b.VehicleID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock vehicle: %w", err)
	}

	var conflictEnd sql.NullTime
	conflictQuery := `SELECT MAX(return_date) FROM bookings
	                  WHERE vehicle_id = $1 AND status <> 'cancelled'
	                    AND pickup_date < $3 + make_interval(secs => $4)
	                    AND return_date + make_interval(secs => $4) > $2`
	err = tx.QueryRowContext(ctx, conflictQuery, b.VehicleID, b.PickupDate, b.ReturnDate, opts.TurnaroundBuffer.Seconds()).Scan(&conflictEnd)
	if err != nil {
		return fmt.Errorf("check booking overlap: %w", err)
	}
	if conflictEnd.Valid {
		next := conflictEnd.Time.Add(opts.NextAvailableBuffer)
		return &domain.AvailabilityConflictError{VehicleID: b.VehicleID, Pickup: b.PickupDate, Return: b.ReturnDate, NextAvailableTime: &next}
	}

	if opts.DiscountCode != "" {
		res, err := tx.ExecContext(ctx, `UPDATE discounts SET quantity = quantity - 1 WHERE code = $1 AND quantity > 0`, normalizeCode(opts.DiscountCode))
		if err != nil {
			return fmt.Errorf("redeem discount: %w", err)
		}
		n, err := res.RowsAffected()
		logger.DatabaseResult("discounts.Redeem", n, err, "code", opts.DiscountCode)
		if err != nil {
			return fmt.Errorf("redeem discount: %w", err)
		}
		if n == 0 {
			return &domain.DiscountIneligibleError{Code: opts.DiscountCode, Reason: domain.DiscountReasonOutOfStock, Message: "discount code has been fully redeemed"}
		}
	}

	guestName, guestPhone, guestEmail := guestFields(b)
	insert := `INSERT INTO bookings (vehicle_id, pickup_date, return_date, user_id, guest_name, guest_phone, guest_email,
	               pickup_type, delivery_location, self_return, insurance_tier,
	               original_amount, insurance_fee, delivery_fee, vat, discount_code, discount_amount, final_amount, deposit_amount, hold_fee,
	               status, payment_status, payment_type, paid_amount)
	           VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	           RETURNING id, created_on, updated_on`
	err = tx.QueryRowContext(ctx, insert,
		b.VehicleID, b.PickupDate, b.ReturnDate, b.UserID, guestName, guestPhone, guestEmail,
		b.PickupType, b.DeliveryLocation, b.SelfReturn, b.InsuranceTier,
		b.OriginalAmount, b.InsuranceFee, b.DeliveryFee, b.VAT, b.DiscountCode, b.DiscountAmount, b.FinalAmount, b.DepositAmount, b.HoldFee,
		b.Status, b.PaymentStatus, b.PaymentType, b.PaidAmount,
	).Scan(&b.ID, &b.CreatedOn, &b.UpdatedOn)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
			return &domain.AvailabilityConflictError{VehicleID: b.VehicleID, Pickup: b.PickupDate, Return: b.ReturnDate}
		}
		return fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	logger.DatabaseResult("bookings.CreateIfAvailable", 1, nil, "booking_id", b.ID)
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

func (r *bookingRepository) GetByPaymentRef(ctx context.Context, ref string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE payment_ref = $1 AND payment_ref <> ''`
	b, err := scanBooking(r.db.QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// Update persists lifecycle and payment fields. The price snapshot and interval are immutable.
func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `UPDATE bookings SET status=$1, payment_status=$2, payment_type=$3, paid_amount=$4, paid_at=$5,
	                 payment_ref=$6, payment_txn_id=$7, payment_url=$8, payment_fail_cause=$9,
	                 cancel_reason=$10, cancelled_at=$11, completed_at=$12, updated_on=$13
	          WHERE id=$14`
	b.UpdatedOn = time.Now()
	res, err := r.db.ExecContext(ctx, query, b.Status, b.PaymentStatus, b.PaymentType, b.PaidAmount, b.PaidAt,
		b.PaymentRef, b.PaymentTxnID, b.PaymentURL, b.PaymentFailCause,
		b.CancelReason, b.CancelledAt, b.CompletedAt, b.UpdatedOn, b.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *bookingRepository) ListOccupying(ctx context.Context, vehicleID int32, from, to time.Time) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE vehicle_id = $1 AND status <> 'cancelled' AND pickup_date < $3 AND return_date > $2
	          ORDER BY pickup_date, id`
	return r.list(ctx, query, vehicleID, from, to)
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customer domain.CustomerInfo, page, pageSize int32) ([]domain.Booking, int32, error) {
	where, args := customerFilter(customer)
	if where == "" {
		return nil, 0, nil
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM bookings WHERE `+where, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where +
		fmt.Sprintf(` ORDER BY created_on DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	bookings, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return bookings, count, nil
}

func (r *bookingRepository) CountByCustomer(ctx context.Context, customer domain.CustomerInfo) (int, int, error) {
	where, args := customerFilter(customer)
	if where == "" {
		return 0, 0, nil
	}
	query := `SELECT COUNT(*) FILTER (WHERE status <> 'cancelled'), COUNT(*) FILTER (WHERE status = 'completed')
	          FROM bookings WHERE ` + where
	var nonCancelled, completed int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&nonCancelled, &completed); err != nil {
		return 0, 0, err
	}
	return nonCancelled, completed, nil
}

func (r *bookingRepository) ListByStatus(ctx context.Context, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = ANY($1) ORDER BY pickup_date, id`
	return r.list(ctx, query, pq.Array(names))
}

func (r *bookingRepository) ListUnpaidPendingBefore(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
	          WHERE status = 'pending' AND payment_status <> 'paid' AND created_on < $1
	          ORDER BY pickup_date, id`
	return r.list(ctx, query, cutoff)
}

func (r *bookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func customerFilter(c domain.CustomerInfo) (string, []any) {
	if c.UserID != 0 {
		return "user_id = $1", []any{c.UserID}
	}
	if c.Guest != nil && c.Guest.Phone != "" {
		return "user_id IS NULL AND guest_phone = $1", []any{c.Guest.Phone}
	}
	return "", nil
}
