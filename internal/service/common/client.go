//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	devicegrpc "github.com/oshokin/air-alarm/internal/api/grpc/device"
	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/config"
	"github.com/oshokin/air-alarm/internal/domain/air"
)

// Client wraps the gRPC DeviceService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the device.
	conn *grpc.ClientConn
	// api is the DeviceService client stub.
	api devicegrpc.DeviceServiceClient

	// callTimeout is the default timeout for individual unary calls.
	callTimeout time.Duration
	// actor is attached to every call for the device's audit log.
	actor devicegrpc.Actor
	// dialOptions are appended to the defaults when dialing.
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor identifies the caller in the device log.
func WithActor(actor devicegrpc.Actor) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

// WithDialOptions appends gRPC dial options, e.g. a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errEmptyUpdate is returned when a threshold update carries no field.
	errEmptyUpdate = errors.New("at least one threshold must be provided")
)

// Dial creates a client for the device control API.
// Note: this uses insecure transport credentials; the control API listens on
// loopback by default.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, client.dialOptions...)

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial device: %w", err)
	}

	client.conn = conn
	client.api = devicegrpc.NewDeviceServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the current status snapshot.
func (c *Client) GetStatus(ctx context.Context) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return resp, nil
}

// SendCommand sends a mute, buzzer or wave command.
func (c *Client) SendCommand(ctx context.Context, cmd command.Command) (*structpb.Struct, error) {
	request, err := command.ControlToStruct(cmd)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SendCommand(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("send %s command: %w", cmd.Kind, err)
	}

	return resp, nil
}

// UpdateThresholds sends a partial threshold update.
func (c *Client) UpdateThresholds(ctx context.Context, update air.ThresholdUpdate) (*structpb.Struct, error) {
	if update.Empty() {
		return nil, errEmptyUpdate
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.UpdateThresholds(callCtx, command.UpdateToStruct(update))
	if err != nil {
		return nil, fmt.Errorf("update thresholds: %w", err)
	}

	return resp, nil
}

// Watch calls fn for every streamed snapshot until ctx is canceled, the
// device stops or fn returns an error. The call timeout does not apply.
func (c *Client) Watch(ctx context.Context, fn func(*structpb.Struct) error) error {
	ctx, cancel := context.WithCancel(devicegrpc.WithActor(ctx, c.actor))
	defer cancel()

	stream, err := c.api.WatchStatus(ctx, new(emptypb.Empty))
	if err != nil {
		return fmt.Errorf("watch status: %w", err)
	}

	for {
		snapshot, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("receive status: %w", err)
		}

		if err = fn(snapshot); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline. The actor travels
// as outgoing metadata.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = devicegrpc.WithActor(ctx, c.actor)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
