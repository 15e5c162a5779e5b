//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"

	devicegrpc "github.com/oshokin/air-alarm/internal/api/grpc/device"
)

// DetectActor gathers host and user information for the device's audit log.
func DetectActor() (devicegrpc.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return devicegrpc.Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return devicegrpc.Actor{}, fmt.Errorf("current user: %w", err)
	}

	return devicegrpc.Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
