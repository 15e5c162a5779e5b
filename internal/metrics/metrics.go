package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/air-alarm/internal/domain/air"
)

const namespace = "air_alarm"

// Tick results.
const (
	TickOK      = "ok"
	TickInvalid = "invalid"
	TickError   = "error"
)

// Command results.
const (
	CommandApplied  = "applied"
	CommandPartial  = "partial"
	CommandInvalid  = "invalid"
	CommandIgnored  = "ignored"
	CommandRejected = "rejected"
)

// Metrics bundles the appliance metrics.
type Metrics struct {
	registry *prometheus.Registry

	ticks      *prometheus.CounterVec
	firings    *prometheus.CounterVec
	commands   *prometheus.CounterVec
	publishes  *prometheus.CounterVec
	linkState  *prometheus.GaugeVec
	attempts   *prometheus.CounterVec
	reading    *prometheus.GaugeVec
	thresholds *prometheus.GaugeVec
	muted      prometheus.Gauge
	critical   prometheus.Gauge
}

// New constructs and registers metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Evaluation ticks by result",
		}, []string{"result"}),
		firings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarms_total",
			Help:      "Alarm firings by tier",
		}, []string{"tier"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Inbound commands by kind and result",
		}, []string{"kind", "result"}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "Sensor data publications by result",
		}, []string{"result"}),
		linkState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "link_state",
			Help:      "Transport state: 0 disconnected, 1 connecting, 2 connected",
		}, []string{"transport"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_attempts_total",
			Help:      "Transport connection attempts by result",
		}, []string{"transport", "result"}),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reading",
			Help:      "Last valid sensor reading by quantity",
		}, []string{"quantity"}),
		thresholds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "threshold",
			Help:      "Threshold in effect by quantity",
		}, []string{"quantity"}),
		muted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "muted",
			Help:      "1 while the buzzer is muted",
		}),
		critical: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "critical_active",
			Help:      "1 while a critical CO2 alarm is latched",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ticks,
		m.firings,
		m.commands,
		m.publishes,
		m.linkState,
		m.attempts,
		m.reading,
		m.thresholds,
		m.muted,
		m.critical,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick counts one tick.
func (m *Metrics) ObserveTick(result string) {
	if m == nil {
		return
	}

	m.ticks.WithLabelValues(result).Inc()
}

// ObserveReading records a valid reading.
func (m *Metrics) ObserveReading(r air.Reading) {
	if m == nil {
		return
	}

	m.reading.WithLabelValues(air.FieldTemperature).Set(r.Temperature)
	m.reading.WithLabelValues(air.FieldHumidity).Set(r.Humidity)
	m.reading.WithLabelValues(air.FieldCO2).Set(float64(r.CO2))
	m.reading.WithLabelValues(air.FieldVOC).Set(float64(r.VOC))
}

// ObserveThresholds records the thresholds in effect.
func (m *Metrics) ObserveThresholds(t air.Thresholds) {
	if m == nil {
		return
	}

	m.thresholds.WithLabelValues(air.FieldTemperature).Set(t.Temperature)
	m.thresholds.WithLabelValues(air.FieldHumidity).Set(t.Humidity)
	m.thresholds.WithLabelValues(air.FieldCO2).Set(float64(t.CO2))
	m.thresholds.WithLabelValues(air.FieldVOC).Set(float64(t.VOC))
	m.thresholds.WithLabelValues(air.FieldCO2Critical).Set(float64(t.CO2Critical))
}

// ObserveFiring counts an alarm firing of the given tier.
func (m *Metrics) ObserveFiring(tier string) {
	if m == nil {
		return
	}

	m.firings.WithLabelValues(tier).Inc()
}

// ObserveCommand counts an inbound command.
func (m *Metrics) ObserveCommand(kind, result string) {
	if m == nil {
		return
	}

	m.commands.WithLabelValues(kind, result).Inc()
}

// ObservePublish counts a publication attempt.
func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}

	m.publishes.WithLabelValues(result(err)).Inc()
}

// ObserveAttempt counts a connection attempt of a transport.
func (m *Metrics) ObserveAttempt(transport string, err error) {
	if m == nil {
		return
	}

	m.attempts.WithLabelValues(transport, result(err)).Inc()
}

// SetLinkState records the state of a transport.
func (m *Metrics) SetLinkState(transport string, state int) {
	if m == nil {
		return
	}

	m.linkState.WithLabelValues(transport).Set(float64(state))
}

// SetAlarmState records the mute flag and the critical latch.
func (m *Metrics) SetAlarmState(muted, critical bool) {
	if m == nil {
		return
	}

	m.muted.Set(boolValue(muted))
	m.critical.Set(boolValue(critical))
}

func result(err error) string {
	if err != nil {
		return "failure"
	}

	return "success"
}

func boolValue(v bool) float64 {
	if v {
		return 1
	}

	return 0
}
