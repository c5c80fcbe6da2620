package jobs

import (
	"context"

	"rentcar-booking-backend/internal/logger"
)

// AdvanceBookingStatuses moves paid bookings along confirmed -> ongoing -> completed as their
// pickup and return times pass. Safe to run repeatedly.
func (jr *JobRunner) AdvanceBookingStatuses() {
	jr.runWithRecovery("AdvanceBookingStatuses", func(ctx context.Context) {
		log := logger.WithJob("AdvanceBookingStatuses")

		advanced, err := jr.bookings.AdvanceStatuses(ctx)
		if err != nil {
			// partial progress is kept; the next tick retries the rest
			log.Error("Failed to advance some bookings", "advanced", advanced, "error", err)
			return
		}
		if advanced > 0 {
			log.Info("Advanced booking statuses", "count", advanced)
		}
	})
}

// ExpireUnpaidBookings cancels pending bookings whose payment never arrived within the hold window.
func (jr *JobRunner) ExpireUnpaidBookings() {
	jr.runWithRecovery("ExpireUnpaidBookings", func(ctx context.Context) {
		log := logger.WithJob("ExpireUnpaidBookings")

		expired, err := jr.bookings.ExpireUnpaid(ctx)
		if err != nil {
			log.Error("Failed to expire some unpaid bookings", "expired", expired, "error", err)
			return
		}
		if expired > 0 {
			log.Info("Cancelled unpaid bookings", "count", expired, "reason", "payment_timeout")
		}
	})
}
