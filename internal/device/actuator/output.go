package actuator

import (
	"context"

	"github.com/oshokin/air-alarm/internal/logger"
)

// Output is the raw hardware surface: a tone generator and a servo.
type Output interface {
	// Tone starts a tone at freqHz or silences the buzzer when freqHz is zero.
	Tone(ctx context.Context, freqHz int) error
	// Angle moves the servo to deg degrees (0..180).
	Angle(ctx context.Context, deg int) error
}

// LogOutput records actuator activity in the log instead of driving hardware.
type LogOutput struct{}

// Tone logs the buzzer state.
func (LogOutput) Tone(ctx context.Context, freqHz int) error {
	if freqHz == 0 {
		logger.Debug(ctx, "Buzzer silent")

		return nil
	}

	logger.DebugKV(ctx, "Buzzer sounding", "frequency_hz", freqHz)

	return nil
}

// Angle logs the servo position.
func (LogOutput) Angle(ctx context.Context, deg int) error {
	logger.DebugKV(ctx, "Servo moved", "angle", deg)

	return nil
}
