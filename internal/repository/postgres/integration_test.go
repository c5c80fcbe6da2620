package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/repository"
	"rentcar-booking-backend/internal/repository/postgres"
)

// prepareDB connects to the database named by RENTCAR_TEST_DATABASE_URL, which must have db/schema.sql applied.
func prepareDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("RENTCAR_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RENTCAR_TEST_DATABASE_URL not set")
	}

	var db *sql.DB
	var err error
	// Retry connection as DB might still be starting up
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestIntegration_ConcurrentCreateIsExclusive(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()

	var vehicleID int32
	err := db.QueryRowContext(ctx, `INSERT INTO vehicles (name, license_plate, hourly_rate, seats, fuel_type, transmission)
	                                VALUES ('Race Car', $1, 50000, 4, 'gasoline', 'manual') RETURNING id`,
		"RACE-"+time.Now().Format("150405.000000")).Scan(&vehicleID)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec(`DELETE FROM bookings WHERE vehicle_id = $1`, vehicleID)
		db.Exec(`DELETE FROM vehicles WHERE id = $1`, vehicleID)
	})

	repo := postgres.NewBookingRepository(db)
	start := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			b := &domain.Booking{
				VehicleID:     vehicleID,
				PickupDate:    start.Add(time.Duration(offset) * time.Hour),
				ReturnDate:    start.Add(time.Duration(offset+4) * time.Hour),
				Guest:         &domain.GuestContact{Name: "Racer", Phone: "0900000000"},
				PickupType:    domain.PickupTypeSelf,
				InsuranceTier: domain.InsuranceBasic,
				Status:        domain.BookingStatusPending,
				PaymentStatus: domain.PaymentStatusPending,
				PaymentType:   domain.PaymentTypeHold,
			}
			err := repo.CreateIfAvailable(ctx, b, repository.CreateBookingOptions{})
			var conflict *domain.AvailabilityConflictError
			switch {
			case err == nil:
				mu.Lock()
				created++
				mu.Unlock()
			case errors.As(err, &conflict):
			default:
				assert.NoError(t, err)
			}
		}(i % 3)
	}
	wg.Wait()

	occupying, err := repo.ListOccupying(ctx, vehicleID, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, created, len(occupying))
	for i := range occupying {
		for j := i + 1; j < len(occupying); j++ {
			assert.False(t, domain.Overlaps(occupying[i].PickupDate, occupying[i].ReturnDate, occupying[j].PickupDate, occupying[j].ReturnDate),
				"bookings %d and %d overlap", occupying[i].ID, occupying[j].ID)
		}
	}
}
