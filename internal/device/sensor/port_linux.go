//go:build linux

package sensor

import (
	"fmt"
	"io"
	"syscall"

	"github.com/schleibinger/sio"
)

// OpenPort opens a serial device in raw mode at the given baud rate.
func OpenPort(path string, baud uint) (io.ReadCloser, error) {
	var (
		port *sio.Port
		err  error
	)

	switch baud {
	case 9600:
		port, err = sio.Open(path, syscall.B9600)
	case 19200:
		port, err = sio.Open(path, syscall.B19200)
	case 38400:
		port, err = sio.Open(path, syscall.B38400)
	case 57600:
		port, err = sio.Open(path, syscall.B57600)
	case 115200:
		port, err = sio.Open(path, syscall.B115200)
	case 230400:
		port, err = sio.Open(path, syscall.B230400)
	default:
		return nil, fmt.Errorf("%w: %d", errUnsupportedBaud, baud)
	}

	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	return port, nil
}
