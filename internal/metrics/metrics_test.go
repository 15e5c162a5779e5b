package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/air-alarm/internal/domain/air"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	return string(body)
}

// TestMetricsExposition checks the recorded series appear on scrape.
func TestMetricsExposition(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveTick(TickOK)
	m.ObserveTick(TickOK)
	m.ObserveReading(air.NewReading(22.5, 40, 1600, 120))
	m.ObserveThresholds(air.DefaultThresholds())
	m.ObserveFiring("normal")
	m.ObserveCommand("mute", CommandApplied)
	m.ObservePublish(nil)
	m.ObserveAttempt("messaging", errors.New("refused"))
	m.SetLinkState("network", 2)
	m.SetAlarmState(true, false)

	body := scrape(t, m)
	for _, want := range []string{
		`air_alarm_ticks_total{result="ok"} 2`,
		`air_alarm_reading{quantity="co2"} 1600`,
		`air_alarm_threshold{quantity="co2_critical"} 2500`,
		`air_alarm_alarms_total{tier="normal"} 1`,
		`air_alarm_commands_total{kind="mute",result="applied"} 1`,
		`air_alarm_publishes_total{result="success"} 1`,
		`air_alarm_link_attempts_total{result="failure",transport="messaging"} 1`,
		`air_alarm_link_state{transport="network"} 2`,
		`air_alarm_muted 1`,
		`air_alarm_critical_active 0`,
		`go_goroutines`,
	} {
		require.Contains(t, body, want)
	}
}

// TestNilMetrics is a no-op.
func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics

	require.NotPanics(t, func() {
		m.ObserveTick(TickError)
		m.ObserveFiring("critical")
		m.SetAlarmState(true, true)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
