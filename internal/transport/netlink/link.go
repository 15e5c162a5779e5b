package netlink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/logger"
)

// DefaultPollInterval is the interface check period while connecting.
const DefaultPollInterval = 500 * time.Millisecond

// errNoUsableInterface is returned when no interface qualifies.
var errNoUsableInterface = errors.New("no usable network interface")

// Interface is the part of an interface the link cares about.
type Interface struct {
	// Name of the interface, e.g. wlan0.
	Name string
	// Up reports the administrative state.
	Up bool
	// Loopback marks the loopback interface.
	Loopback bool
	// Addresses is the number of assigned unicast addresses.
	Addresses int
}

// Lister returns the current interfaces.
type Lister func() ([]Interface, error)

// Link implements transport.NetworkLink.
type Link struct {
	// name restricts the check to one interface.
	name string
	// list enumerates interfaces.
	list Lister
	// poll is the check period while connecting.
	poll time.Duration
}

// Option customizes a Link.
type Option func(*Link)

// WithLister replaces the interface enumeration.
func WithLister(l Lister) Option {
	return func(link *Link) {
		link.list = l
	}
}

// WithPollInterval sets the check period while connecting.
func WithPollInterval(d time.Duration) Option {
	return func(link *Link) {
		if d > 0 {
			link.poll = d
		}
	}
}

// New creates a link for the named interface. An empty name accepts any
// non-loopback interface.
func New(name string, opts ...Option) *Link {
	l := &Link{
		name: name,
		list: SystemInterfaces,
		poll: DefaultPollInterval,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Connect waits until the link is usable or ctx is done.
func (l *Link) Connect(ctx context.Context) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		name, err := l.usable()
		if err == nil {
			logger.InfoKV(ctx, "Network link up", "interface", name)

			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: wait for network: %w", air.ErrTransportFailure, errors.Join(err, ctx.Err()))
		case <-ticker.C:
		}
	}
}

// IsConnected reports whether the link is usable right now.
func (l *Link) IsConnected() bool {
	_, err := l.usable()

	return err == nil
}

// usable returns the name of the first qualifying interface.
func (l *Link) usable() (string, error) {
	interfaces, err := l.list()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if l.name != "" && iface.Name != l.name {
			continue
		}

		if iface.Loopback || !iface.Up || iface.Addresses == 0 {
			continue
		}

		return iface.Name, nil
	}

	if l.name != "" {
		return "", fmt.Errorf("%w: %s", errNoUsableInterface, l.name)
	}

	return "", errNoUsableInterface
}

// SystemInterfaces lists the host's interfaces.
func SystemInterfaces() ([]Interface, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	result := make([]Interface, 0, len(interfaces))

	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		var unicast int

		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.IsGlobalUnicast() {
				unicast++
			}
		}

		result = append(result, Interface{
			Name:      iface.Name,
			Up:        iface.Flags&net.FlagUp != 0,
			Loopback:  iface.Flags&net.FlagLoopback != 0,
			Addresses: unicast,
		})
	}

	return result, nil
}
