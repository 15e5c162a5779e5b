package presenter

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/air-alarm/internal/device"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/link"
)

func testFrame() device.Frame {
	return device.Frame{
		Reading:    air.NewReading(23.4, 41, 800, 90),
		Thresholds: air.DefaultThresholds(),
		Link:       link.Snapshot{Network: link.Connected, Messaging: link.Disconnected},
	}
}

func drawn(buf *bytes.Buffer) []string {
	out := strings.TrimSpace(buf.String())
	buf.Reset()

	if out == "" {
		return nil
	}

	return strings.Split(out, "\n")
}

// TestLines checks formatting and alarm markers.
func TestLines(t *testing.T) {
	t.Parallel()

	f := testFrame()
	f.Flags = air.Flags{CO2Critical: true}
	f.CriticalActive = true
	f.Muted = true

	lines := Lines(f)
	require.Len(t, lines, 5)
	require.Equal(t, "  Temperature  23.4 C   (30.0)", lines[0])
	require.True(t, strings.HasPrefix(lines[2], "! CO2"))
	require.Contains(t, lines[2], "(1500/2500)")
	require.Equal(t, "NET: OK   MQTT: FAIL   CRITICAL MUTED", lines[4])
}

// TestRenderOnlyWhenLit draws nothing while the backlight is off.
func TestRenderOnlyWhenLit(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	c := NewConsole(context.Background(), WithWriter(&buf))
	defer c.Close()

	c.Render(testFrame())
	require.Empty(t, drawn(&buf))

	c.WakeDisplay()
	c.Render(testFrame())
	require.Len(t, drawn(&buf), 5)
}

// TestRenderOnlyChanges redraws changed lines only.
func TestRenderOnlyChanges(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	c := NewConsole(context.Background(), WithWriter(&buf))
	defer c.Close()

	c.WakeDisplay()

	f := testFrame()
	c.Render(f)
	drawn(&buf)

	c.Render(f)
	require.Empty(t, drawn(&buf))

	f.Reading = air.NewReading(23.4, 41, 1700, 90)
	f.Flags = air.Flags{CO2: true}
	f.Link.Messaging = link.Connected

	c.Render(f)
	lines := drawn(&buf)
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "[2] ! CO2"))
	require.Equal(t, "[4] NET: OK   MQTT: OK", lines[1])
}

// TestBacklightTimeout switches off after the idle timeout and redraws on wake.
func TestBacklightTimeout(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var buf bytes.Buffer

		c := NewConsole(context.Background(), WithWriter(&buf), WithBacklightTimeout(15*time.Second))
		defer c.Close()

		c.WakeDisplay()
		c.Render(testFrame())
		drawn(&buf)

		time.Sleep(10 * time.Second)
		// Waking again extends the timeout.
		c.WakeDisplay()

		time.Sleep(10 * time.Second)
		synctest.Wait()
		require.True(t, c.BacklightOn())

		time.Sleep(6 * time.Second)
		synctest.Wait()
		require.False(t, c.BacklightOn())

		c.WakeDisplay()
		c.Render(testFrame())
		require.Len(t, drawn(&buf), 5)
	})
}
