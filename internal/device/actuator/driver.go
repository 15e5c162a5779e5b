package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/air-alarm/internal/logger"
)

// Servo positions of the wave gesture, in degrees.
const (
	RestAngle  = 90
	WaveLow    = 45
	WaveHigh   = 135
	maxAngle   = 180
	minAngle   = 0
	toneSilent = 0
)

// Defaults used when the driver is built without options.
const (
	DefaultFrequency = 1000
	DefaultWaveStep  = 400 * time.Millisecond
)

// Driver implements device.Sink.
type Driver struct {
	// out is the hardware backend.
	out Output
	// frequency is the tone used by BuzzerSet.
	frequency int
	// step is the pause between two servo positions.
	step time.Duration

	// mu serializes hardware access and guards the fields below.
	mu sync.Mutex
	// muted suppresses non-forced buzzer output.
	muted bool
	// on reports a continuously sounding buzzer.
	on bool
	// forced reports that the continuous tone bypasses mute.
	forced bool
}

// Option customizes a Driver.
type Option func(*Driver)

// WithFrequency sets the continuous tone frequency.
func WithFrequency(freqHz int) Option {
	return func(d *Driver) {
		if freqHz > 0 {
			d.frequency = freqHz
		}
	}
}

// WithWaveStep sets the pause between servo positions.
func WithWaveStep(step time.Duration) Option {
	return func(d *Driver) {
		if step > 0 {
			d.step = step
		}
	}
}

// New creates a driver. A nil output logs instead of driving hardware.
func New(out Output, opts ...Option) *Driver {
	if out == nil {
		out = LogOutput{}
	}

	d := &Driver{
		out:       out,
		frequency: DefaultFrequency,
		step:      DefaultWaveStep,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Reset silences the buzzer and parks the servo.
func (d *Driver) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.on, d.forced = false, false

	if err := d.out.Tone(ctx, toneSilent); err != nil {
		return fmt.Errorf("silence buzzer: %w", err)
	}

	if err := d.out.Angle(ctx, RestAngle); err != nil {
		return fmt.Errorf("park servo: %w", err)
	}

	return nil
}

// BuzzerPulse beeps for dur at freqHz. It does nothing while muted or while
// the buzzer sounds continuously.
func (d *Driver) BuzzerPulse(ctx context.Context, dur time.Duration, freqHz int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.muted || d.on {
		logger.DebugKV(ctx, "Buzzer pulse skipped", "muted", d.muted, "continuous", d.on)

		return nil
	}

	if freqHz <= 0 {
		freqHz = d.frequency
	}

	if err := d.out.Tone(ctx, freqHz); err != nil {
		return fmt.Errorf("start buzzer pulse: %w", err)
	}

	waitErr := sleep(ctx, dur)

	// Always silence, even when the wait was interrupted.
	if err := d.out.Tone(context.WithoutCancel(ctx), toneSilent); err != nil {
		return fmt.Errorf("stop buzzer pulse: %w", err)
	}

	return waitErr
}

// BuzzerSet switches the continuous tone. A non-forced "on" while muted turns
// the buzzer off instead.
func (d *Driver) BuzzerSet(ctx context.Context, on, forced bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if on && (forced || !d.muted) {
		if d.on && d.forced == forced {
			return nil
		}

		if err := d.out.Tone(ctx, d.frequency); err != nil {
			return fmt.Errorf("start buzzer: %w", err)
		}

		d.on, d.forced = true, forced

		logger.InfoKV(ctx, "Buzzer on", "forced", forced)

		return nil
	}

	return d.silence(ctx)
}

// ServoWave swings the servo repeats times and returns it to rest.
func (d *Driver) ServoWave(ctx context.Context, repeats int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error

wave:
	for range max(repeats, 1) {
		for _, angle := range [...]int{WaveLow, WaveHigh} {
			if err = d.move(ctx, angle); err != nil {
				break wave
			}
		}
	}

	// The servo returns to rest even when the gesture was interrupted.
	if restErr := d.out.Angle(context.WithoutCancel(ctx), RestAngle); restErr != nil && err == nil {
		err = fmt.Errorf("park servo: %w", restErr)
	}

	return err
}

// SetMute records the mute flag. Muting stops a non-forced continuous tone.
func (d *Driver) SetMute(ctx context.Context, muted bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.muted = muted

	if muted && d.on && !d.forced {
		return d.silence(ctx)
	}

	return nil
}

// Muted reports the mute flag.
func (d *Driver) Muted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.muted
}

// silence turns the continuous tone off. Callers hold mu.
func (d *Driver) silence(ctx context.Context) error {
	wasOn := d.on
	d.on, d.forced = false, false

	if err := d.out.Tone(ctx, toneSilent); err != nil {
		return fmt.Errorf("stop buzzer: %w", err)
	}

	if wasOn {
		logger.Info(ctx, "Buzzer off")
	}

	return nil
}

// move positions the servo and waits one step. Callers hold mu.
func (d *Driver) move(ctx context.Context, angle int) error {
	angle = min(max(angle, minAngle), maxAngle)

	if err := d.out.Angle(ctx, angle); err != nil {
		return fmt.Errorf("move servo to %d: %w", angle, err)
	}

	return sleep(ctx, d.step)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
