package health

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client queries a running tracker's health service.
type Client struct {
	conn          *grpc.ClientConn
	healthClient  healthpb.HealthClient
	serverAddress string
	timeout       time.Duration
}

// NewClient creates a client for the health service at serverAddress.
func NewClient(serverAddress string, timeout time.Duration, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(serverAddress, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddress, err)
	}

	return &Client{
		conn:          conn,
		healthClient:  healthpb.NewHealthClient(conn),
		serverAddress: serverAddress,
		timeout:       timeout,
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Check returns the serving status of service.
func (c *Client) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		log.Printf("[health] check of %q at %s failed: %v", service, c.serverAddress, err)
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
