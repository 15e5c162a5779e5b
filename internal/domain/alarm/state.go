package alarm

import "time"

// State is the run-time alarm state. It starts zeroed and is never persisted.
type State struct {
	// CriticalActive is true while the critical tier owns the buzzer.
	CriticalActive bool
	// NormalCooldownUntil is the earliest time a normal-tier alarm may fire again.
	// The zero value means no cooldown is pending.
	NormalCooldownUntil time.Time
	// NormalStrikeCount counts consecutive ticks with any normal threshold exceeded.
	NormalStrikeCount int
	// Muted suppresses non-critical audible output.
	Muted bool
}

// Clone returns a copy of the state.
func (s *State) Clone() *State {
	cloned := *s

	return &cloned
}

// CoolingDown reports whether a normal-tier cooldown is still pending at now.
func (s *State) CoolingDown(now time.Time) bool {
	return !s.NormalCooldownUntil.IsZero() && !now.After(s.NormalCooldownUntil)
}
