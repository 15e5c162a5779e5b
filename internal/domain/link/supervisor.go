package link

import (
	"sync"
	"time"
)

// DefaultRetryInterval is the fixed wait before a failed transport is retried.
const DefaultRetryInterval = 15 * time.Second

// Config holds the fixed retry intervals of both transports.
type Config struct {
	// NetworkRetry is the wait after a network failure.
	NetworkRetry time.Duration
	// MessagingRetry is the wait after a messaging failure.
	MessagingRetry time.Duration
}

// transport is the per-transport bookkeeping.
type transport struct {
	// state is the current connection state.
	state State
	// retryAt is the earliest time the next connect attempt may start.
	retryAt time.Time
}

// Supervisor owns the reconnect policy for the network and messaging transports.
// It is safe for concurrent use.
type Supervisor struct {
	// cfg holds the retry intervals.
	cfg Config
	// network tracks the network transport.
	network transport
	// messaging tracks the messaging transport.
	messaging transport
	// onChange is invoked after every state transition, outside the lock.
	onChange func(Transport, State)
	// mu serializes access from the tick and connectivity loops.
	mu sync.Mutex
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithChangeHook registers a callback fired after each transition.
func WithChangeHook(fn func(Transport, State)) Option {
	return func(s *Supervisor) {
		s.onChange = fn
	}
}

// NewSupervisor creates a supervisor with both transports disconnected and
// eligible for an immediate first attempt.
func NewSupervisor(cfg Config, opts ...Option) *Supervisor {
	if cfg.NetworkRetry <= 0 {
		cfg.NetworkRetry = DefaultRetryInterval
	}

	if cfg.MessagingRetry <= 0 {
		cfg.MessagingRetry = DefaultRetryInterval
	}

	s := &Supervisor{cfg: cfg}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Poll returns the next action to perform at now.
// A connect action moves the transport to Connecting until ReportResult is called.
func (s *Supervisor) Poll(now time.Time) Action {
	var (
		action  = ActionNone
		changed []change
	)

	s.mu.Lock()

	switch {
	case s.network.state != Connected:
		if s.network.state == Disconnected && !now.Before(s.network.retryAt) {
			s.network.state = Connecting
			action = ActionConnectNetwork
			changed = append(changed, change{Network, Connecting})
		}
	case s.messaging.state != Connected:
		if s.messaging.state == Disconnected && !now.Before(s.messaging.retryAt) {
			s.messaging.state = Connecting
			action = ActionConnectMessaging
			changed = append(changed, change{Messaging, Connecting})
		}
	default:
		action = ActionDrainInbound
	}

	s.mu.Unlock()
	s.notify(changed)

	return action
}

// ReportResult records the outcome of an action returned by Poll.
// A nil err means success.
func (s *Supervisor) ReportResult(action Action, err error, now time.Time) {
	var changed []change

	s.mu.Lock()

	switch action {
	case ActionConnectNetwork:
		if s.network.state != Connecting {
			break
		}

		if err != nil {
			changed = s.dropNetwork(now)
			break
		}

		s.network.state = Connected
		// Messaging may follow right away.
		s.messaging.retryAt = now
		changed = append(changed, change{Network, Connected})
	case ActionConnectMessaging:
		if s.messaging.state != Connecting {
			break
		}

		if err != nil {
			changed = s.dropMessaging(now)
			break
		}

		s.messaging.state = Connected
		changed = append(changed, change{Messaging, Connected})
	case ActionDrainInbound:
		if err != nil && s.messaging.state == Connected {
			changed = s.dropMessaging(now)
		}
	case ActionNone:
	}

	s.mu.Unlock()
	s.notify(changed)
}

// NetworkLost reports that the network went down outside of an action.
// Messaging is forced down with it.
func (s *Supervisor) NetworkLost(now time.Time) {
	s.mu.Lock()

	var changed []change
	if s.network.state == Connected {
		changed = s.dropNetwork(now)
	}

	s.mu.Unlock()
	s.notify(changed)
}

// MessagingLost reports that the broker session failed outside of an action,
// for example on a failed publish.
func (s *Supervisor) MessagingLost(now time.Time) {
	s.mu.Lock()

	var changed []change
	if s.messaging.state == Connected {
		changed = s.dropMessaging(now)
	}

	s.mu.Unlock()
	s.notify(changed)
}

// Snapshot returns the current state of both transports.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Network:   s.network.state,
		Messaging: s.messaging.state,
	}
}

// RetryAt returns the earliest next attempt for the given transport.
func (s *Supervisor) RetryAt(t Transport) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t == Messaging {
		return s.messaging.retryAt
	}

	return s.network.retryAt
}

// change is one recorded transition.
type change struct {
	transport Transport
	state     State
}

// dropNetwork must be called with mu held.
func (s *Supervisor) dropNetwork(now time.Time) []change {
	changed := []change{{Network, Disconnected}}

	s.network.state = Disconnected
	s.network.retryAt = now.Add(s.cfg.NetworkRetry)

	if s.messaging.state != Disconnected {
		s.messaging.state = Disconnected
		changed = append(changed, change{Messaging, Disconnected})
	}

	return changed
}

// dropMessaging must be called with mu held.
func (s *Supervisor) dropMessaging(now time.Time) []change {
	s.messaging.state = Disconnected
	s.messaging.retryAt = now.Add(s.cfg.MessagingRetry)

	return []change{{Messaging, Disconnected}}
}

func (s *Supervisor) notify(changed []change) {
	if s.onChange == nil {
		return
	}

	for _, c := range changed {
		s.onChange(c.transport, c.state)
	}
}
