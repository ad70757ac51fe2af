// Package health exposes the tracker's state through the standard gRPC health service.
package health

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"tracker-bot/tracker"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reporting the polling cycle.
const ServiceName = "tracker"

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Check reports whether a backing service, such as the database, is reachable.
type Check func(ctx context.Context) error

// Server serves grpc.health.v1. The overall status is SERVING while the
// process runs; ServiceName turns SERVING after a successful cycle whose
// readiness checks all pass and NOT_SERVING otherwise.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	checks []Check
}

// NewServer creates a health server with ServiceName NOT_SERVING until the first cycle completes.
func NewServer(checks ...Check) *Server {
	g := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(g, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{grpc: g, health: hs, checks: checks}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	log.Printf("[health] gRPC health service listening on %s", lis.Addr())
	if err := s.grpc.Serve(lis); err != nil {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and serves in the background.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	go func() {
		if err := s.Serve(lis); err != nil {
			log.Printf("[health] %v", err)
		}
	}()
	return nil
}

// CycleFinished records the outcome of a polling cycle.
func (s *Server) CycleFinished(_ tracker.CycleResult, err error, _ time.Duration) {
	if err == nil {
		err = s.ready()
		if err != nil {
			log.Printf("[health] readiness check failed: %v", err)
		}
	}
	if err != nil {
		s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

func (s *Server) ready() error {
	var errs []error
	for _, check := range s.checks {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		errs = append(errs, check(ctx))
		cancel()
	}
	return errors.Join(errs...)
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
