package link

// State is the connection state of a single transport.
type State int

const (
	// Disconnected means the transport is down and waits for its retry deadline.
	Disconnected State = iota
	// Connecting means a connect attempt is in flight.
	Connecting
	// Connected means the transport is up.
	Connected
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Transport identifies one of the supervised transports.
type Transport int

const (
	// Network is the underlying network link (e.g. WLAN).
	Network Transport = iota
	// Messaging is the publish/subscribe broker session.
	Messaging
)

// String implements fmt.Stringer.
func (t Transport) String() string {
	if t == Messaging {
		return "messaging"
	}

	return "network"
}

// Action is what the caller should do on this loop iteration.
type Action int

const (
	// ActionNone means nothing to do right now.
	ActionNone Action = iota
	// ActionConnectNetwork asks for a network connect attempt.
	ActionConnectNetwork
	// ActionConnectMessaging asks for a messaging connect attempt.
	ActionConnectMessaging
	// ActionDrainInbound asks the caller to poll and process inbound messages.
	ActionDrainInbound
)

// String implements fmt.Stringer.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionConnectNetwork:
		return "connect_network"
	case ActionConnectMessaging:
		return "connect_messaging"
	case ActionDrainInbound:
		return "drain_inbound"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of both transports.
type Snapshot struct {
	Network   State
	Messaging State
}

// Online reports whether both transports are connected.
func (s Snapshot) Online() bool {
	return s.Network == Connected && s.Messaging == Connected
}
