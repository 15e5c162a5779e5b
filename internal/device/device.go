package device

import (
	"context"
	"time"

	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/link"
)

// Source provides sensor readings.
type Source interface {
	// Read returns the best-known reading without blocking.
	// Unavailable quantities are reported through sentinel values.
	Read() air.Reading
}

// Sink drives the buzzer and the servo.
type Sink interface {
	// BuzzerPulse emits a short beep unless muted or continuously on.
	BuzzerPulse(ctx context.Context, d time.Duration, freqHz int) error
	// BuzzerSet switches the buzzer on or off. Forced output bypasses mute.
	BuzzerSet(ctx context.Context, on, forced bool) error
	// ServoWave runs the wave gesture and returns the servo to rest.
	ServoWave(ctx context.Context, repeats int) error
	// SetMute records the mute flag. Muting stops non-forced output.
	SetMute(ctx context.Context, muted bool) error
}

// Frame is everything the presenter shows at once.
type Frame struct {
	// Reading is the last evaluated reading.
	Reading air.Reading
	// Flags marks the quantities exceeding their thresholds.
	Flags air.Flags
	// Thresholds currently in effect.
	Thresholds air.Thresholds
	// Link is the connection status of both transports.
	Link link.Snapshot
	// Muted reports the mute flag.
	Muted bool
	// CriticalActive reports a latched critical CO2 alarm.
	CriticalActive bool
}

// Presenter renders frames and owns the display backlight.
type Presenter interface {
	// Render shows the frame.
	Render(frame Frame)
	// WakeDisplay turns the backlight on and restarts its idle timeout.
	WakeDisplay()
}
