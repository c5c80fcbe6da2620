package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/lib/pq"

	"rentcar-booking-backend/internal/alert"
	"rentcar-booking-backend/internal/config"
	"rentcar-booking-backend/internal/jobs"
	"rentcar-booking-backend/internal/lock"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/repository/postgres"
	"rentcar-booking-backend/internal/scheduler"
	"rentcar-booking-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'advance-booking-statuses', 'expire-unpaid-bookings', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rentcar Cronjob Runner...", "log_level", cfg.Log.Level)

	if cfg.Database.Driver != "postgres" {
		// the memory store lives inside the server process, which runs its own sweeps
		log.Fatalf("Cronjob runner requires the postgres driver, got %q", cfg.Database.Driver)
	}

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Sweeps take the same per-booking locks as the API, so they must share its backend
	locker, err := lock.New(context.Background(), cfg.LockerConfig())
	if err != nil {
		logger.Error("Failed to initialize lock backend", "error", err)
		log.Fatalf("Failed to initialize lock backend: %v", err)
	}
	if cfg.Lock.Backend == "local" {
		logger.Warn("Local lock backend only serializes within this process; use redis when the server runs concurrently")
	}

	alerter, err := alert.New(cfg.AlerterConfig())
	if err != nil {
		log.Fatalf("Failed to initialize alerter: %v", err)
	}

	// Initialize Services
	settings := cfg.Settings()
	now := service.Clock(time.Now)
	availabilitySvc := service.NewAvailabilityService(store.VehicleRepository, store.BookingRepository, settings, now)
	discountSvc := service.NewDiscountService(store.DiscountRepository, store.BookingRepository, now)
	bookingSvc := service.NewBookingService(
		store.VehicleRepository,
		store.BookingRepository,
		availabilitySvc,
		discountSvc,
		locker,
		alerter,
		settings,
		now,
	)

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(bookingSvc, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to schedule jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "advance-booking-statuses":
		jobRunner.AdvanceBookingStatuses()
	case "expire-unpaid-bookings":
		jobRunner.ExpireUnpaidBookings()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - advance-booking-statuses\n")
		fmt.Printf("  - expire-unpaid-bookings\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
