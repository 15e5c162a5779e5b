package device

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "airalarm.v1.DeviceService"

// Full method names.
const (
	GetStatusMethod        = "/" + ServiceName + "/GetStatus"
	SendCommandMethod      = "/" + ServiceName + "/SendCommand"
	UpdateThresholdsMethod = "/" + ServiceName + "/UpdateThresholds"
	WatchStatusMethod      = "/" + ServiceName + "/WatchStatus"
)

// DeviceServiceServer is the server API of the device service.
type DeviceServiceServer interface {
	// GetStatus returns the current status snapshot.
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// SendCommand applies a control-topic command (MUTE, BUZZER, FLAG).
	SendCommand(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// UpdateThresholds applies a partial thresholds-topic update.
	UpdateThresholds(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	// WatchStatus streams status snapshots until the client goes away.
	WatchStatus(req *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error
}

// ServiceDesc describes the device service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // grpc requires a descriptor value.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeviceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    getStatusHandler,
		},
		{
			MethodName: "SendCommand",
			Handler:    sendCommandHandler,
		},
		{
			MethodName: "UpdateThresholds",
			Handler:    updateThresholdsHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchStatus",
			Handler:       watchStatusHandler,
			ServerStreams: true,
		},
	},
	Metadata: "airalarm/v1/device.proto",
}

// RegisterDeviceServiceServer registers srv on s.
func RegisterDeviceServiceServer(s grpc.ServiceRegistrar, srv DeviceServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getStatusHandler(
	srv any,
	ctx context.Context, //nolint:revive // signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DeviceServiceServer).GetStatus(ctx, in) //nolint:forcetypeassert // HandlerType guarantees it.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetStatusMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceServiceServer).GetStatus(ctx, req.(*emptypb.Empty)) //nolint:forcetypeassert // see above.
	}

	return interceptor(ctx, in, info, handler)
}

func sendCommandHandler(
	srv any,
	ctx context.Context, //nolint:revive // signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DeviceServiceServer).SendCommand(ctx, in) //nolint:forcetypeassert // HandlerType guarantees it.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SendCommandMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceServiceServer).SendCommand(ctx, req.(*structpb.Struct)) //nolint:forcetypeassert // see above.
	}

	return interceptor(ctx, in, info, handler)
}

func updateThresholdsHandler(
	srv any,
	ctx context.Context, //nolint:revive // signature fixed by grpc.MethodHandler.
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(DeviceServiceServer).UpdateThresholds(ctx, in) //nolint:forcetypeassert // HandlerType guarantees it.
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: UpdateThresholdsMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DeviceServiceServer).UpdateThresholds(ctx, req.(*structpb.Struct)) //nolint:forcetypeassert // see above.
	}

	return interceptor(ctx, in, info, handler)
}

func watchStatusHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(DeviceServiceServer).WatchStatus( //nolint:forcetypeassert // HandlerType guarantees it.
		in,
		&grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream},
	)
}

// DeviceServiceClient is the client API of the device service.
type DeviceServiceClient interface {
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	SendCommand(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	UpdateThresholds(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	WatchStatus(
		ctx context.Context,
		in *emptypb.Empty,
		opts ...grpc.CallOption,
	) (grpc.ServerStreamingClient[structpb.Struct], error)
}

type deviceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDeviceServiceClient creates client stubs bound to cc.
func NewDeviceServiceClient(cc grpc.ClientConnInterface) DeviceServiceClient {
	return &deviceServiceClient{cc: cc}
}

func (c *deviceServiceClient) GetStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *deviceServiceClient) SendCommand(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SendCommandMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *deviceServiceClient) UpdateThresholds(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, UpdateThresholdsMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *deviceServiceClient) WatchStatus(
	ctx context.Context,
	in *emptypb.Empty,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[structpb.Struct], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], WatchStatusMethod, opts...)
	if err != nil {
		return nil, err
	}

	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err = x.SendMsg(in); err != nil {
		return nil, err
	}

	if err = x.CloseSend(); err != nil {
		return nil, err
	}

	return x, nil
}
