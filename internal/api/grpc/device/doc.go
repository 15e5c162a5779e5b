// Package device implements the local gRPC control surface of the appliance.
//
// The service is described by a hand-written grpc.ServiceDesc whose messages
// are well-known protobuf types: status snapshots travel as structpb.Struct in
// the same schema the device publishes, and commands use the control and
// thresholds topic schemas. The package also ships the matching client stubs.
package device
