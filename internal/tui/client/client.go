package client

import (
	"context"
	"fmt"

	"github.com/matheus3301/vitalchat/internal/wire"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client wraps the gRPC connection to a session daemon.
type Client struct {
	conn    *grpc.ClientConn
	Session wire.SessionServiceClient
	Chat    wire.ChatServiceClient
	Health  healthpb.HealthClient
}

// New dials the daemon's Unix domain socket and returns typed service clients.
// Dialing is lazy; the first call surfaces a missing daemon.
func New(socketPath string) (*Client, error) {
	conn, err := wire.Dial(socketPath)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{
		conn:    conn,
		Session: wire.NewSessionServiceClient(conn),
		Chat:    wire.NewChatServiceClient(conn),
		Health:  healthpb.NewHealthClient(conn),
	}, nil
}

// Health messages are protobuf types; they keep the proto codec instead of
// the connection's JSON default.
var protoCall = grpc.CallContentSubtype("proto")

// ChatServing reports whether the daemon's chat service is serving, which it
// only is while the session is authenticated.
func (c *Client) ChatServing(ctx context.Context) (bool, error) {
	resp, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: wire.ChatService_ServiceDesc.ServiceName}, protoCall)
	if err != nil {
		return false, err
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// Ping checks that the daemon answers at all.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health.Check(ctx, &healthpb.HealthCheckRequest{}, protoCall)
	return err
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
