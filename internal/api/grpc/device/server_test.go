package device

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/status"
)

// fakeService records applied commands and serves a fixed snapshot.
type fakeService struct {
	mu       sync.Mutex
	snapshot status.Status
	applied  []command.Command
	applyErr error
	updates  chan status.Status
}

func newFakeService() *fakeService {
	return &fakeService{
		snapshot: status.Status{
			Device:     "test-device",
			Reading:    air.NewReading(22.5, 40, 800, 100),
			HasReading: true,
			Thresholds: air.DefaultThresholds(),
		},
		updates: make(chan status.Status, 4),
	}
}

func (f *fakeService) Status() status.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snapshot
}

func (f *fakeService) ApplyCommand(_ context.Context, cmd command.Command) (command.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.applyErr != nil {
		return command.Result{}, f.applyErr
	}

	f.applied = append(f.applied, cmd)

	if cmd.Kind == command.KindMute {
		f.snapshot.Muted = cmd.On
	}

	if cmd.Kind != command.KindThresholds {
		return command.Result{}, nil
	}

	accepted, _ := f.snapshot.Thresholds.Apply(cmd.Thresholds)

	result := command.Result{Rejected: cmd.Rejected}
	for _, field := range accepted {
		result.Accepted = append(result.Accepted, command.FieldKey(field))
	}

	return result, nil
}

func (f *fakeService) Watch(ctx context.Context) <-chan status.Status {
	out := make(chan status.Status)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case s := <-f.updates:
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// startServer serves svc over an in-memory listener and returns a connected client.
func startServer(t *testing.T, svc Service) DeviceServiceClient {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(context.Background())))
	RegisterDeviceServiceServer(server, NewServer(svc))

	go func() {
		_ = server.Serve(listener)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return listener.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()

		server.Stop()
	})

	return NewDeviceServiceClient(conn)
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()

	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)

	return s
}

// TestServer_GetStatus checks the snapshot is served in the extended schema.
func TestServer_GetStatus(t *testing.T) {
	t.Parallel()

	client := startServer(t, newFakeService())

	resp, err := client.GetStatus(context.Background(), new(emptypb.Empty))
	require.NoError(t, err)

	fields := resp.AsMap()
	require.Equal(t, "test-device", fields[status.KeyDevice])
	require.InDelta(t, 800, fields[status.KeyCO2], 0)
	require.Equal(t, "disconnected", fields[status.KeyNetwork])
	require.Contains(t, fields, status.KeyThresholds)
}

// TestServer_SendCommand applies a mute command through the control schema.
func TestServer_SendCommand(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	client := startServer(t, svc)

	ctx := WithActor(context.Background(), Actor{Hostname: "host", Username: "user"})

	_, err := client.SendCommand(ctx, mustStruct(t, map[string]any{
		command.KeyCommand: command.CommandMute,
		command.KeyStatus:  command.StatusOn,
	}))
	require.NoError(t, err)

	require.Len(t, svc.applied, 1)
	require.Equal(t, command.KindMute, svc.applied[0].Kind)
	require.True(t, svc.applied[0].On)
}

// TestServer_SendCommand_Invalid maps decode failures to InvalidArgument.
func TestServer_SendCommand_Invalid(t *testing.T) {
	t.Parallel()

	client := startServer(t, newFakeService())

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{
			name:   "missing command",
			fields: map[string]any{command.KeyStatus: command.StatusOn},
		},
		{
			name: "bad status",
			fields: map[string]any{
				command.KeyCommand: command.CommandBuzzer,
				command.KeyStatus:  "MAYBE",
			},
		},
		{
			name:   "unknown command",
			fields: map[string]any{command.KeyCommand: "DANCE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.SendCommand(context.Background(), mustStruct(t, tt.fields))
			require.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))
		})
	}
}

// TestServer_UpdateThresholds reports accepted and rejected fields.
func TestServer_UpdateThresholds(t *testing.T) {
	t.Parallel()

	client := startServer(t, newFakeService())

	resp, err := client.UpdateThresholds(context.Background(), mustStruct(t, map[string]any{
		command.KeyCO2: 1200,
		command.KeyVOC: "high",
	}))
	require.NoError(t, err)

	fields := resp.AsMap()
	require.Equal(t, []any{command.KeyCO2}, fields[KeyAccepted])
	require.Equal(t, []any{command.KeyVOC}, fields[KeyRejected])

	thresholds, ok := fields[KeyThresholds].(map[string]any)
	require.True(t, ok)
	require.InDelta(t, 1200, thresholds[command.KeyCO2], 0)

	_, err = client.UpdateThresholds(context.Background(), new(structpb.Struct))
	require.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))
}

// TestServer_ApplyFailure maps service failures to gRPC codes.
func TestServer_ApplyFailure(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	svc.applyErr = air.ErrValidationRejected
	client := startServer(t, svc)

	_, err := client.UpdateThresholds(context.Background(), mustStruct(t, map[string]any{
		command.KeyCO2: 99999,
	}))
	require.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))

	svc.mu.Lock()
	svc.applyErr = context.DeadlineExceeded
	svc.mu.Unlock()

	_, err = client.SendCommand(context.Background(), mustStruct(t, map[string]any{
		command.KeyCommand: command.CommandFlag,
		command.KeyAction:  command.ActionWave,
	}))
	require.Equal(t, codes.Internal, grpcstatus.Code(err))
}

// TestServer_WatchStatus streams the initial snapshot followed by updates.
func TestServer_WatchStatus(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	client := startServer(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.WatchStatus(ctx, new(emptypb.Empty))
	require.NoError(t, err)

	initial, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, false, initial.AsMap()[status.KeyMuted])

	update := svc.Status()
	update.Muted = true
	svc.updates <- update

	next, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, true, next.AsMap()[status.KeyMuted])
}

// TestActorFromContext checks metadata without an incoming context.
func TestActorFromContext(t *testing.T) {
	t.Parallel()

	require.Equal(t, Actor{}, ActorFromContext(context.Background()))
}
