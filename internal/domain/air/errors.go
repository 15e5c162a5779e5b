package air

import "errors"

var (
	// ErrSensorInvalid marks a reading that must not update alarm state.
	ErrSensorInvalid = errors.New("sensor reading invalid")
	// ErrTransportFailure marks a failed connect, publish or receive on a transport.
	ErrTransportFailure = errors.New("transport failure")
	// ErrDecode marks a structurally invalid inbound payload.
	ErrDecode = errors.New("decode payload")
	// ErrValidationRejected marks a single threshold field that failed validation.
	ErrValidationRejected = errors.New("validation rejected")
)
