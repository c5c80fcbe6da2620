package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/lib/pq"

	"rentcar-booking-backend/internal/alert"
	grpcapi "rentcar-booking-backend/internal/api/grpc"
	httpapi "rentcar-booking-backend/internal/api/http"
	"rentcar-booking-backend/internal/config"
	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/jobs"
	"rentcar-booking-backend/internal/lock"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/payment"
	"rentcar-booking-backend/internal/repository"
	"rentcar-booking-backend/internal/repository/memory"
	"rentcar-booking-backend/internal/repository/postgres"
	"rentcar-booking-backend/internal/scheduler"
	"rentcar-booking-backend/internal/security"
	"rentcar-booking-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	withScheduler := flag.Bool("scheduler", false, "Run the booking sweeps in-process (always on for the memory driver)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rentcar Booking Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Repositories
	var (
		vehicleRepo  repository.VehicleRepository
		bookingRepo  repository.BookingRepository
		discountRepo repository.DiscountRepository
		checks       []grpcapi.Check
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		seedDemoFleet(store)
		vehicleRepo, bookingRepo, discountRepo = store.VehicleRepository, store.BookingRepository, store.DiscountRepository
		*withScheduler = true
	default:
		logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Test database connection
		if err := db.PingContext(ctx); err != nil {
			logger.Error("Failed to ping database", "error", err)
			log.Fatalf("Failed to ping database: %v", err)
		}
		logger.Info("Database connection established")

		store := postgres.NewStore(db)
		vehicleRepo, bookingRepo, discountRepo = store.VehicleRepository, store.BookingRepository, store.DiscountRepository
		checks = append(checks, grpcapi.Check{Name: "database", Probe: store.DB().PingContext})
	}

	// Initialize per-vehicle lock
	locker, err := lock.New(ctx, cfg.LockerConfig())
	if err != nil {
		logger.Error("Failed to initialize lock backend", "backend", cfg.Lock.Backend, "error", err)
		log.Fatalf("Failed to initialize lock backend: %v", err)
	}
	logger.Info("Lock backend ready", "backend", cfg.Lock.Backend)

	// Initialize operator alerts
	alerter, err := alert.New(cfg.AlerterConfig())
	if err != nil {
		logger.Error("Failed to initialize alerter", "provider", cfg.Alert.Provider, "error", err)
		log.Fatalf("Failed to initialize alerter: %v", err)
	}

	// Initialize payment gateway
	gatewayCfg := cfg.GatewayConfig()
	if gatewayCfg.Provider != "mock" {
		logger.Error("Unsupported payment provider", "provider", gatewayCfg.Provider)
		log.Fatalf("Payment provider '%s' not yet implemented", gatewayCfg.Provider)
	}
	logger.Info("Using mock payment gateway", "base_url", gatewayCfg.BaseURL)
	gateway := payment.NewMockGateway(gatewayCfg)

	// Initialize Services
	settings := cfg.Settings()
	now := service.Clock(time.Now)
	availabilitySvc := service.NewAvailabilityService(vehicleRepo, bookingRepo, settings, now)
	discountSvc := service.NewDiscountService(discountRepo, bookingRepo, now)
	quoteSvc := service.NewQuoteService(vehicleRepo, availabilitySvc, discountSvc, settings)
	bookingSvc := service.NewBookingService(vehicleRepo, bookingRepo, availabilitySvc, discountSvc, locker, alerter, settings, now)
	paymentSvc := service.NewPaymentService(bookingRepo, gateway, locker, alerter, gatewayCfg.CallbackSecret, now)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	// Set up HTTP server
	router := httpapi.NewRouter(httpapi.NewHandler(availabilitySvc, quoteSvc, bookingSvc, paymentSvc), tokenManager)
	httpapi.RegisterMockPaymentRoutes(router, gateway, paymentSvc, gatewayCfg.CallbackSecret)
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	// Set up gRPC health server
	var healthServer *grpcapi.HealthServer
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		healthServer = grpcapi.NewHealthServer(15*time.Second, checks...)
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	// In-process sweeps
	var cronScheduler *scheduler.Scheduler
	if *withScheduler {
		cronScheduler, err = scheduler.NewScheduler(jobs.NewJobRunner(bookingSvc, cfg))
		if err != nil {
			log.Fatalf("Failed to schedule jobs: %v", err)
		}
		cronScheduler.Start()
	}

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	if healthServer != nil {
		healthServer.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}

// seedDemoFleet gives the memory driver something to book.
func seedDemoFleet(store *memory.Store) {
	fleet := []domain.Vehicle{
		{ID: 1, Name: "VinFast VF8", LicensePlate: "51K-123.45", HourlyRate: 50000, Seats: 5, FuelType: domain.FuelTypeElectric, Transmission: domain.TransmissionAutomatic, IsAvailable: true},
		{ID: 2, Name: "Toyota Innova", LicensePlate: "51K-678.90", HourlyRate: 100000, Seats: 7, FuelType: domain.FuelTypeDiesel, Transmission: domain.TransmissionManual, IsAvailable: true},
		{ID: 3, Name: "Kia Morning", LicensePlate: "51K-246.80", HourlyRate: 30000, Seats: 4, FuelType: domain.FuelTypeGasoline, Transmission: domain.TransmissionAutomatic, IsAvailable: true},
	}
	for _, v := range fleet {
		v.CreatedOn = time.Now()
		store.PutVehicle(v)
	}
	logger.Info("Seeded demo fleet", "vehicles", len(fleet))
}
