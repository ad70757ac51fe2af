package health

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"tracker-bot/tracker"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, checks ...Check) (*Server, *Client) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := NewServer(checks...)
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
	c, err := NewClient("passthrough:///bufnet", 5*time.Second, grpc.WithContextDialer(dialer))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return s, c
}

func TestServingStatusFollowsCycles(t *testing.T) {
	s, c := startServer(t)
	ctx := context.Background()

	status, err := c.Check(ctx, ServiceName)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status before first cycle = %v", status)
	}

	s.CycleFinished(tracker.CycleResult{Ingested: 1}, nil, time.Second)
	if status, _ = c.Check(ctx, ServiceName); status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status after success = %v", status)
	}

	s.CycleFinished(tracker.CycleResult{}, errors.New("source down"), time.Second)
	if status, _ = c.Check(ctx, ServiceName); status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status after failure = %v", status)
	}
}

func TestReadinessChecksGateServing(t *testing.T) {
	var dbErr error
	s, c := startServer(t, func(context.Context) error { return dbErr })
	ctx := context.Background()

	s.CycleFinished(tracker.CycleResult{}, nil, time.Second)
	if status, _ := c.Check(ctx, ServiceName); status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status with reachable store = %v", status)
	}

	dbErr = errors.New("database is closed")
	s.CycleFinished(tracker.CycleResult{}, nil, time.Second)
	if status, _ := c.Check(ctx, ServiceName); status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status with unreachable store = %v", status)
	}
}

func TestOverallStatusServing(t *testing.T) {
	_, c := startServer(t)
	status, err := c.Check(context.Background(), "")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("overall status = %v", status)
	}
}

func TestUnknownService(t *testing.T) {
	_, c := startServer(t)
	if _, err := c.Check(context.Background(), "nope"); err == nil {
		t.Fatal("expected NotFound for an unregistered service")
	}
}
