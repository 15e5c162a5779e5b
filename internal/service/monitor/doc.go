// Package monitor runs the appliance: it wires the sensor source, actuators,
// presenter and transports to the alarm engine and the connectivity
// supervisor.
//
// Controller serializes every state change. Run drives it from two loops: the
// tick loop (read, evaluate, apply, publish) and the connectivity loop
// (supervise transports, drain inbound commands). The local gRPC control API
// and the HTTP status endpoint share the same Controller.
package monitor
