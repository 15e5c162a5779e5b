package device

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/status"
	"github.com/oshokin/air-alarm/internal/logger"
)

// Response keys of SendCommand and UpdateThresholds.
const (
	KeyAccepted   = "accepted"
	KeyRejected   = "rejected"
	KeyThresholds = "thresholds"
)

// Metadata keys identifying who issued a call.
const (
	MetadataHostname = "x-actor-hostname"
	MetadataUsername = "x-actor-username"
)

// Service abstracts the device operations the transport layer depends on.
type Service interface {
	Status() status.Status
	ApplyCommand(ctx context.Context, cmd command.Command) (command.Result, error)
	Watch(ctx context.Context) <-chan status.Status
}

// Actor identifies the host and user behind a control call.
type Actor struct {
	Hostname string
	Username string
}

// Server implements DeviceServiceServer on top of a Service.
type Server struct {
	// service executes the decoded commands.
	service Service
	// router decodes command payloads.
	router *command.Router
}

var _ DeviceServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
		router:  command.NewRouter(command.Topics{}),
	}
}

// GetStatus returns the current status snapshot.
func (s *Server) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.service.Status())
}

// SendCommand decodes a control-topic command and applies it.
func (s *Server) SendCommand(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, grpcstatus.Error(codes.InvalidArgument, "request is required")
	}

	cmd, err := s.router.DecodeControl(req)
	if err != nil {
		return nil, toStatusError(err)
	}

	return s.apply(ctx, cmd)
}

// UpdateThresholds decodes a partial thresholds update and applies it.
func (s *Server) UpdateThresholds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil || len(req.GetFields()) == 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "at least one threshold is required")
	}

	cmd, err := s.router.DecodeThresholds(req)
	if err != nil {
		return nil, toStatusError(err)
	}

	return s.apply(ctx, cmd)
}

// WatchStatus streams snapshots until the client cancels.
func (s *Server) WatchStatus(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()

	initial, err := toStruct(s.service.Status())
	if err != nil {
		return err
	}

	if err = stream.Send(initial); err != nil {
		return err
	}

	for snapshot := range s.service.Watch(ctx) {
		message, err := toStruct(snapshot)
		if err != nil {
			return err
		}

		if err = stream.Send(message); err != nil {
			return err
		}
	}

	return nil
}

// LoggingInterceptor logs every unary call together with the calling actor.
func LoggingInterceptor(base context.Context) grpc.UnaryServerInterceptor {
	base = logger.WithName(base, "grpc")

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)

		actor := ActorFromContext(ctx)
		kv := []any{
			"method", info.FullMethod,
			"hostname", actor.Hostname,
			"username", actor.Username,
		}

		if err != nil {
			logger.WarnKV(base, "Call failed", append(kv, "error", err)...)
		} else {
			logger.DebugKV(base, "Call served", kv...)
		}

		return resp, err
	}
}

// WithActor attaches actor metadata to an outgoing context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return metadata.AppendToOutgoingContext(ctx,
		MetadataHostname, actor.Hostname,
		MetadataUsername, actor.Username)
}

// ActorFromContext reads actor metadata from an incoming context.
func ActorFromContext(ctx context.Context) Actor {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return Actor{}
	}

	return Actor{
		Hostname: first(md.Get(MetadataHostname)),
		Username: first(md.Get(MetadataUsername)),
	}
}

func (s *Server) apply(ctx context.Context, cmd command.Command) (*structpb.Struct, error) {
	result, err := s.service.ApplyCommand(ctx, cmd)
	if err != nil {
		return nil, toStatusError(err)
	}

	accepted := make([]any, 0, len(result.Accepted))
	for _, field := range result.Accepted {
		accepted = append(accepted, field)
	}

	rejected := make([]any, 0, len(result.Rejected))
	for _, field := range result.Rejected {
		rejected = append(rejected, field)
	}

	response, err := structpb.NewStruct(map[string]any{
		KeyAccepted: accepted,
		KeyRejected: rejected,
	})
	if err != nil {
		return nil, grpcstatus.Error(codes.Internal, "unable to build response")
	}

	response.Fields[KeyThresholds] = structpb.NewStructValue(
		command.ThresholdsToStruct(s.service.Status().Thresholds))

	return response, nil
}

func toStruct(snapshot status.Status) (*structpb.Struct, error) {
	message, err := structpb.NewStruct(snapshot.Extended())
	if err != nil {
		return nil, grpcstatus.Error(codes.Internal, "unable to encode status")
	}

	return message, nil
}

func toStatusError(err error) error {
	switch {
	case errors.Is(err, air.ErrDecode),
		errors.Is(err, command.ErrUnknownCommand),
		errors.Is(err, air.ErrValidationRejected):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	default:
		return grpcstatus.Error(codes.Internal, "unable to apply command")
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}

	return values[0]
}
