//go:build !linux

package sensor

import (
	"fmt"
	"io"
	"runtime"
)

// OpenPort is only supported on Linux.
func OpenPort(path string, _ uint) (io.ReadCloser, error) {
	return nil, fmt.Errorf("open serial port %s: %w on %s", path, errUnsupportedPlatform, runtime.GOOS)
}
