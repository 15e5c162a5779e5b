package presenter

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/air-alarm/internal/device"
	"github.com/oshokin/air-alarm/internal/domain/link"
	"github.com/oshokin/air-alarm/internal/logger"
)

// DefaultBacklightTimeout is the idle time before the backlight switches off.
const DefaultBacklightTimeout = 15 * time.Second

// Console renders frames to a writer or, without one, to the log.
type Console struct {
	// ctx carries the named logger.
	ctx context.Context //nolint:containedctx // Used for logging from timer callbacks.
	// out receives redrawn lines. Nil logs them instead.
	out io.Writer
	// timeout is the backlight idle timeout.
	timeout time.Duration

	// mu guards the fields below.
	mu sync.Mutex
	// backlight reports whether the display is lit.
	backlight bool
	// timer switches the backlight off.
	timer *time.Timer
	// shown holds the lines currently on screen.
	shown []string
}

// Option customizes a Console.
type Option func(*Console)

// WithWriter draws lines to w instead of the log.
func WithWriter(w io.Writer) Option {
	return func(c *Console) {
		c.out = w
	}
}

// WithBacklightTimeout sets the idle timeout.
func WithBacklightTimeout(d time.Duration) Option {
	return func(c *Console) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewConsole creates a console with the backlight off.
func NewConsole(ctx context.Context, opts ...Option) *Console {
	c := &Console{
		ctx:     logger.WithName(ctx, "display"),
		timeout: DefaultBacklightTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Render redraws the lines that changed since the previous frame.
func (c *Console) Render(frame device.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.backlight {
		c.shown = nil

		return
	}

	lines := Lines(frame)

	for i, line := range lines {
		if i < len(c.shown) && c.shown[i] == line {
			continue
		}

		c.draw(i, line)
	}

	c.shown = lines
}

// WakeDisplay lights the backlight and restarts the idle timeout.
func (c *Console) WakeDisplay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.backlight {
		c.backlight = true
		c.shown = nil

		logger.Debug(c.ctx, "Backlight on")
	}

	if c.timer != nil {
		c.timer.Stop()
	}

	c.timer = time.AfterFunc(c.timeout, c.sleep)
}

// BacklightOn reports whether the display is lit.
func (c *Console) BacklightOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.backlight
}

// Close stops the idle timer.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// sleep switches the backlight off.
func (c *Console) sleep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.backlight = false
	c.shown = nil

	logger.Debug(c.ctx, "Backlight off")
}

// draw outputs one line. Callers hold mu.
func (c *Console) draw(row int, line string) {
	if c.out == nil {
		logger.InfoKV(c.ctx, line, "row", row)

		return
	}

	_, _ = fmt.Fprintf(c.out, "[%d] %s\n", row, line)
}

// Lines formats a frame as display lines. Values above their threshold are
// marked with "!".
func Lines(f device.Frame) []string {
	r, t := f.Reading, f.Thresholds

	status := fmt.Sprintf("NET: %s   MQTT: %s", linkText(f.Link.Network), linkText(f.Link.Messaging))

	var flags []string
	if f.CriticalActive {
		flags = append(flags, "CRITICAL")
	}

	if f.Muted {
		flags = append(flags, "MUTED")
	}

	if len(flags) > 0 {
		status += "   " + strings.Join(flags, " ")
	}

	return []string{
		fmt.Sprintf("%s Temperature %5.1f C   (%.1f)", mark(f.Flags.Temperature), r.Temperature, t.Temperature),
		fmt.Sprintf("%s Humidity    %5.1f %%   (%.0f%%)", mark(f.Flags.Humidity), r.Humidity, t.Humidity),
		fmt.Sprintf("%s CO2         %5d ppm (%d/%d)", mark(f.Flags.CO2 || f.Flags.CO2Critical), r.CO2, t.CO2, t.CO2Critical),
		fmt.Sprintf("%s VOC         %5d ppb (%d)", mark(f.Flags.VOC), r.VOC, t.VOC),
		status,
	}
}

func mark(alarm bool) string {
	if alarm {
		return "!"
	}

	return " "
}

func linkText(s link.State) string {
	switch s {
	case link.Connected:
		return "OK"
	case link.Connecting:
		return "..."
	default:
		return "FAIL"
	}
}
