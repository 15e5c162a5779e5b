package alarm

import "github.com/oshokin/air-alarm/internal/domain/air"

// Buzzer is the buzzer side effect requested by a decision.
type Buzzer int

const (
	// BuzzerNone leaves the buzzer untouched.
	BuzzerNone Buzzer = iota
	// BuzzerForceOn switches the buzzer on continuously, bypassing mute.
	BuzzerForceOn
	// BuzzerPulse emits a short mute-respecting beep.
	BuzzerPulse
	// BuzzerOff switches the buzzer off.
	BuzzerOff
	// BuzzerOn switches the buzzer on continuously, respecting mute.
	BuzzerOn
)

// String implements fmt.Stringer.
func (b Buzzer) String() string {
	switch b {
	case BuzzerNone:
		return "none"
	case BuzzerForceOn:
		return "force-on"
	case BuzzerPulse:
		return "pulse"
	case BuzzerOff:
		return "off"
	case BuzzerOn:
		return "on"
	default:
		return "unknown"
	}
}

// Servo is the servo side effect requested by a decision.
type Servo int

const (
	// ServoNone leaves the servo at rest.
	ServoNone Servo = iota
	// ServoWave runs the wave gesture.
	ServoWave
)

// String implements fmt.Stringer.
func (s Servo) String() string {
	if s == ServoWave {
		return "wave"
	}

	return "none"
}

// Event names the state machine transition that happened during a tick.
type Event int

const (
	// EventNone means no tier changed or fired.
	EventNone Event = iota
	// EventCriticalEntered means the critical tier just engaged.
	EventCriticalEntered
	// EventCriticalHeld means the critical tier stayed engaged.
	EventCriticalHeld
	// EventCriticalCleared means the critical tier just released the buzzer.
	EventCriticalCleared
	// EventNormalFired means a normal-tier alarm fired.
	EventNormalFired
)

// String implements fmt.Stringer.
func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventCriticalEntered:
		return "critical_entered"
	case EventCriticalHeld:
		return "critical_held"
	case EventCriticalCleared:
		return "critical_cleared"
	case EventNormalFired:
		return "normal_fired"
	default:
		return "unknown"
	}
}

// Decision is the set of side effects produced by one engine call.
type Decision struct {
	// Buzzer is the requested buzzer action.
	Buzzer Buzzer
	// Servo is the requested servo action.
	Servo Servo
	// WakeDisplay asks the presenter to switch the backlight on.
	WakeDisplay bool
	// Flags are the per-field alarm flags of the evaluated reading.
	Flags air.Flags
	// Event is the transition that produced this decision.
	Event Event
	// PulseMuted is set when a normal-tier pulse was suppressed by mute.
	PulseMuted bool
}

// IsZero reports whether the decision carries no side effect.
func (d Decision) IsZero() bool {
	return d.Buzzer == BuzzerNone && d.Servo == ServoNone && !d.WakeDisplay
}
