package jobs

import (
	"context"
	"time"

	"rentcar-booking-backend/internal/config"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/service"
)

// defaultJobTimeout bounds a single sweep so a stuck store cannot pile up runs.
const defaultJobTimeout = 2 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	bookings service.BookingService
	config   *config.Config
	timeout  time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(bookings service.BookingService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		bookings: bookings,
		config:   cfg,
		timeout:  defaultJobTimeout,
	}
}

// Config exposes the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	logger.Info("Starting job", "job", jobName)
	jobFunc(ctx)
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every booking sweep once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireUnpaidBookings()
	jr.AdvanceBookingStatuses()
}
