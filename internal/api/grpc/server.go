package grpc

import (
	"context"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"rentcar-booking-backend/internal/logger"
)

// ServiceName is the health service name reported alongside the overall "" entry.
const ServiceName = "rentcar.booking.v1.BookingService"

// Check probes one dependency (database, lock backend).
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// HealthServer exposes grpc.health.v1 and reflection, with status driven by dependency checks.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   []Check
	interval time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

func NewHealthServer(interval time.Duration, checks ...Check) *HealthServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)

	// Register reflection service for grpcurl
	reflection.Register(s)

	return &HealthServer{
		server:   s,
		health:   hs,
		checks:   checks,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Refresh runs every check once and publishes the result.
func (h *HealthServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for _, c := range h.checks {
		if err := c.Probe(ctx); err != nil {
			logger.Warn("Health check failed", "check", c.Name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve blocks serving on lis while refreshing health in the background.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.Refresh(context.Background())
	go h.watch()

	logger.Info("gRPC health server listening", "address", lis.Addr().String())
	return h.server.Serve(lis)
}

func (h *HealthServer) watch() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), h.interval)
			h.Refresh(ctx)
			cancel()
		}
	}
}

// Stop marks the service not serving and drains in-flight RPCs.
func (h *HealthServer) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.health.Shutdown()
		h.server.GracefulStop()
	})
}

// Health returns the underlying health service, for in-process checks.
func (h *HealthServer) Health() healthpb.HealthServer {
	return h.health
}
