package sensor

import "errors"

var (
	// errUnsupportedBaud is returned for a baud rate the serial driver cannot set.
	errUnsupportedBaud = errors.New("unsupported baud rate")
	// errUnsupportedPlatform is returned where no serial driver is available.
	errUnsupportedPlatform = errors.New("serial sensors are not supported")
)
