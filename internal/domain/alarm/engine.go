package alarm

import (
	"time"

	"github.com/oshokin/air-alarm/internal/domain/air"
)

const (
	// DefaultCooldown is the minimum time between two normal-tier firings.
	DefaultCooldown = 300 * time.Second
	// DefaultStrikeThreshold is the number of consecutive exceedances needed to fire.
	DefaultStrikeThreshold = 2
)

// Config tunes the normal-tier debouncing.
type Config struct {
	// Cooldown is the window after a firing during which the normal tier stays silent.
	Cooldown time.Duration
	// StrikeThreshold is the number of consecutive exceeding ticks required to fire.
	StrikeThreshold int
}

// Engine is the two-tier alarm state machine.
type Engine struct {
	// cfg holds the debouncing parameters.
	cfg Config
	// state is the mutable run-time state.
	state State
}

// NewEngine creates an engine with zeroed state. Non-positive config values fall back to defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}

	if cfg.StrikeThreshold <= 0 {
		cfg.StrikeThreshold = DefaultStrikeThreshold
	}

	return &Engine{cfg: cfg}
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	return e.state
}

// Config returns the engine parameters after defaults were applied.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate runs one tick of the state machine.
// An invalid reading returns air.ErrSensorInvalid and leaves the state untouched.
func (e *Engine) Evaluate(reading air.Reading, thresholds air.Thresholds, now time.Time) (Decision, error) {
	if !reading.Valid() {
		return Decision{}, air.ErrSensorInvalid
	}

	var (
		flags     = thresholds.Evaluate(reading)
		anyNormal = flags.AnyNormal()
		decision  = Decision{Flags: flags}
	)

	switch {
	case flags.CO2Critical:
		decision.Buzzer = BuzzerForceOn
		decision.Event = EventCriticalHeld

		if !e.state.CriticalActive {
			e.state.CriticalActive = true
			e.state.NormalStrikeCount = 0
			e.state.NormalCooldownUntil = time.Time{}
			decision.WakeDisplay = true
			decision.Event = EventCriticalEntered
		}
	case e.state.CriticalActive:
		decision.Buzzer = BuzzerOff
		decision.Event = EventCriticalCleared
		e.state.CriticalActive = false

		// Still above a normal threshold: hold the normal tier back for a full cooldown.
		if anyNormal {
			e.state.NormalCooldownUntil = now.Add(e.cfg.Cooldown)
			e.state.NormalStrikeCount = 0
		}
	}

	if e.state.CriticalActive {
		return decision, nil
	}

	if !anyNormal {
		e.state.NormalStrikeCount = 0
		e.state.NormalCooldownUntil = time.Time{}

		return decision, nil
	}

	e.state.NormalStrikeCount++

	if e.state.NormalStrikeCount < e.cfg.StrikeThreshold || !now.After(e.state.NormalCooldownUntil) {
		return decision, nil
	}

	decision.Event = EventNormalFired
	decision.Servo = ServoWave
	decision.WakeDisplay = true

	if e.state.Muted {
		decision.PulseMuted = true
	} else {
		decision.Buzzer = BuzzerPulse
	}

	e.state.NormalCooldownUntil = now.Add(e.cfg.Cooldown)
	e.state.NormalStrikeCount = 0

	return decision, nil
}

// SetMuted toggles mute. Muting without an active critical alarm switches the buzzer off;
// the forced critical buzzer is never silenced by mute.
func (e *Engine) SetMuted(muted bool) Decision {
	e.state.Muted = muted

	if muted && !e.state.CriticalActive {
		return Decision{Buzzer: BuzzerOff}
	}

	return Decision{}
}

// SetBuzzer handles a remote buzzer command.
// Switching off acknowledges a latched critical alarm; if CO2 is still critical
// the next tick engages the critical tier again. Switching on respects mute.
func (e *Engine) SetBuzzer(on bool) Decision {
	if !on {
		e.state.CriticalActive = false

		return Decision{Buzzer: BuzzerOff}
	}

	if e.state.Muted {
		return Decision{Buzzer: BuzzerOff}
	}

	return Decision{Buzzer: BuzzerOn}
}
