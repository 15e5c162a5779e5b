package monitor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/btittelbach/pubsub"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/device"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/alarm"
	"github.com/oshokin/air-alarm/internal/domain/link"
	"github.com/oshokin/air-alarm/internal/domain/status"
	"github.com/oshokin/air-alarm/internal/logger"
	"github.com/oshokin/air-alarm/internal/metrics"
	"github.com/oshokin/air-alarm/internal/repository/thresholds"
	"github.com/oshokin/air-alarm/internal/transport"
)

// Alarm tiers used in metrics.
const (
	tierNormal   = "normal"
	tierCritical = "critical"

	// statusTopic is the internal bus topic carrying status snapshots.
	statusTopic = "status"
	// busCapacity bounds the per-watcher backlog; slow watchers miss updates.
	busCapacity = 16
)

// Dependencies are the collaborators driven by the Controller.
type Dependencies struct {
	Source    device.Source
	Sink      device.Sink
	Presenter device.Presenter
	Messenger transport.Messenger
	Network   transport.NetworkLink
	Router    *command.Router
	// Repository persists thresholds. Optional.
	Repository thresholds.Repository
	// Metrics records instrumentation. Optional.
	Metrics *metrics.Metrics
}

// Settings tune the Controller.
type Settings struct {
	// Device is the device name reported in status views.
	Device string
	// DataTopic receives the published sensor payload.
	DataTopic string
	// Thresholds are in effect until a persisted or remote set replaces them.
	Thresholds air.Thresholds
	// Alarm configures the engine.
	Alarm alarm.Config
	// Link configures the retry intervals.
	Link link.Config
	// PulseDuration and PulseFrequency shape the normal-tier beep.
	PulseDuration  time.Duration
	PulseFrequency int
	// WaveRepeats is the number of servo swings per wave.
	WaveRepeats int
	// ConnectTimeout bounds a transport connect attempt.
	ConnectTimeout time.Duration
	// PublishTimeout bounds a single publication.
	PublishTimeout time.Duration
}

// Controller owns the alarm engine, the thresholds and the connectivity
// supervisor and serializes access to them.
type Controller struct {
	deps       Dependencies
	settings   Settings
	engine     *alarm.Engine
	supervisor *link.Supervisor
	bus        *pubsub.PubSub
	now        func() time.Time

	// busMu guards busClosed. The bus must not be used after Shutdown.
	busMu     sync.RWMutex
	busClosed bool

	// act serializes decision application so actuator effects keep the order
	// of the state changes that produced them.
	act sync.Mutex

	// mu guards the fields below and the engine.
	mu         sync.Mutex
	thresholds air.Thresholds
	reading    air.Reading
	flags      air.Flags
	hasReading bool
	updatedAt  time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// NewController creates a controller. Both transports start disconnected.
func NewController(ctx context.Context, deps Dependencies, settings Settings, opts ...Option) *Controller {
	if err := settings.Thresholds.Validate(); err != nil {
		logger.WarnKV(ctx, "Invalid startup thresholds, using factory values", "error", err)

		settings.Thresholds = air.DefaultThresholds()
	}

	c := &Controller{
		deps:       deps,
		settings:   settings,
		engine:     alarm.NewEngine(settings.Alarm),
		bus:        pubsub.NewNonBlocking(busCapacity),
		now:        time.Now,
		thresholds: settings.Thresholds,
	}

	for _, opt := range opts {
		opt(c)
	}

	ctx = logger.WithName(ctx, "link")
	c.supervisor = link.NewSupervisor(settings.Link, link.WithChangeHook(func(t link.Transport, s link.State) {
		logger.InfoKV(ctx, "Transport state changed", "transport", t, "state", s)
		c.deps.Metrics.SetLinkState(t.String(), int(s))
	}))

	c.deps.Metrics.ObserveThresholds(c.thresholds)
	c.deps.Metrics.SetLinkState(link.Network.String(), int(link.Disconnected))
	c.deps.Metrics.SetLinkState(link.Messaging.String(), int(link.Disconnected))

	return c
}

// Restore replaces the startup thresholds with the persisted ones, if any.
func (c *Controller) Restore(ctx context.Context) error {
	if c.deps.Repository == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	restored, err := c.deps.Repository.Load(ctx, c.thresholds)

	switch {
	case err == nil:
	case errors.Is(err, thresholds.ErrNotFound):
		return nil
	case errors.Is(err, air.ErrValidationRejected):
		logger.WarnKV(ctx, "Some persisted thresholds were rejected", "error", err)
	default:
		return fmt.Errorf("load thresholds: %w", err)
	}

	c.thresholds = restored
	c.deps.Metrics.ObserveThresholds(restored)

	logger.InfoKV(ctx, "Thresholds restored", "thresholds", restored)

	return nil
}

// Tick reads the sensors, evaluates the reading, applies the decision and
// publishes the result. An invalid reading returns air.ErrSensorInvalid and
// changes nothing.
func (c *Controller) Tick(ctx context.Context) error {
	reading := c.deps.Source.Read()

	c.act.Lock()
	defer c.act.Unlock()

	c.mu.Lock()
	now := c.now()

	decision, err := c.engine.Evaluate(reading, c.thresholds, now)
	if err != nil {
		c.mu.Unlock()
		c.deps.Metrics.ObserveTick(metrics.TickInvalid)

		return fmt.Errorf("evaluate reading: %w", err)
	}

	c.reading, c.flags, c.hasReading, c.updatedAt = reading, decision.Flags, true, now
	snapshot := c.statusLocked()
	c.mu.Unlock()

	c.deps.Metrics.ObserveTick(metrics.TickOK)
	c.deps.Metrics.ObserveReading(reading)
	c.deps.Metrics.SetAlarmState(snapshot.Muted, snapshot.CriticalActive)
	c.observeEvent(ctx, decision, reading)

	c.apply(ctx, decision)
	c.deps.Presenter.Render(frame(snapshot))

	c.publish(ctx, snapshot)
	c.broadcast(snapshot)

	return nil
}

// ApplyCommand executes a decoded command from any control surface.
func (c *Controller) ApplyCommand(ctx context.Context, cmd command.Command) (command.Result, error) {
	c.act.Lock()
	defer c.act.Unlock()

	var (
		result   command.Result
		decision alarm.Decision
		err      error
	)

	c.mu.Lock()

	switch cmd.Kind {
	case command.KindMute:
		decision = c.engine.SetMuted(cmd.On)
	case command.KindBuzzer:
		decision = c.engine.SetBuzzer(cmd.On)
	case command.KindWave:
		decision = alarm.Decision{Servo: alarm.ServoWave}
	case command.KindThresholds:
		result, err = c.applyThresholdsLocked(ctx, cmd)
	default:
		err = fmt.Errorf("%w: %s", command.ErrUnknownCommand, cmd.Kind)
	}

	snapshot := c.statusLocked()
	c.mu.Unlock()

	c.deps.Metrics.ObserveCommand(cmd.Kind.String(), commandResult(result, err))

	if err != nil {
		return result, err
	}

	logger.InfoKV(ctx, "Command applied", "kind", cmd.Kind, "on", cmd.On,
		"accepted", result.Accepted, "rejected", result.Rejected)

	if cmd.Kind == command.KindMute {
		if sinkErr := c.deps.Sink.SetMute(ctx, cmd.On); sinkErr != nil {
			logger.ErrorKV(ctx, "Failed to set mute", "error", sinkErr)
		}
	}

	c.apply(ctx, decision)
	c.deps.Metrics.SetAlarmState(snapshot.Muted, snapshot.CriticalActive)
	c.deps.Presenter.Render(frame(snapshot))
	c.broadcast(snapshot)

	return result, nil
}

// Status returns the current snapshot.
func (c *Controller) Status() status.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.statusLocked()
}

// Thresholds returns the thresholds in effect.
func (c *Controller) Thresholds() air.Thresholds {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.thresholds
}

// Watch streams status snapshots until ctx is done or the controller is
// closed. Slow receivers skip snapshots instead of blocking the device.
func (c *Controller) Watch(ctx context.Context) <-chan status.Status {
	out := make(chan status.Status, 1)

	c.busMu.RLock()
	defer c.busMu.RUnlock()

	if c.busClosed {
		close(out)

		return out
	}

	sub := c.bus.Sub(statusTopic)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				c.unsubscribe(sub)

				return
			case msg, ok := <-sub:
				if !ok {
					return
				}

				snapshot, ok := msg.(status.Status)
				if !ok {
					continue
				}

				select {
				case out <- snapshot:
				case <-ctx.Done():
					c.unsubscribe(sub)

					return
				}
			}
		}
	}()

	return out
}

// Close stops the status bus and ends every Watch stream.
func (c *Controller) Close() {
	c.busMu.Lock()
	defer c.busMu.Unlock()

	if c.busClosed {
		return
	}

	c.busClosed = true
	c.bus.Shutdown()
}

// broadcast hands a snapshot to the Watch subscribers.
func (c *Controller) broadcast(snapshot status.Status) {
	c.busMu.RLock()
	defer c.busMu.RUnlock()

	if c.busClosed {
		return
	}

	c.bus.Pub(snapshot, statusTopic)
}

func (c *Controller) unsubscribe(sub chan any) {
	c.busMu.RLock()
	defer c.busMu.RUnlock()

	if c.busClosed {
		return
	}

	c.bus.Unsub(sub, statusTopic)
}

// applyThresholdsLocked merges a partial threshold update and persists the result.
// Result fields use the thresholds-topic keys.
func (c *Controller) applyThresholdsLocked(ctx context.Context, cmd command.Command) (command.Result, error) {
	result := command.Result{Rejected: append([]string(nil), cmd.Rejected...)}

	updated := c.thresholds

	accepted, applyErr := updated.Apply(cmd.Thresholds)

	for _, field := range cmd.Thresholds.Fields() {
		if slices.Contains(accepted, field) {
			result.Accepted = append(result.Accepted, command.FieldKey(field))
		} else {
			result.Rejected = append(result.Rejected, command.FieldKey(field))
		}
	}

	if applyErr != nil {
		logger.WarnKV(ctx, "Threshold fields rejected", "error", applyErr)
	}

	if len(accepted) == 0 {
		if len(result.Rejected) == 0 && applyErr == nil {
			return result, nil
		}

		return result, fmt.Errorf("%w: no threshold field accepted", air.ErrValidationRejected)
	}

	c.thresholds = updated
	c.deps.Metrics.ObserveThresholds(updated)

	if c.deps.Repository != nil {
		if err := c.deps.Repository.Save(ctx, updated); err != nil {
			logger.ErrorKV(ctx, "Failed to persist thresholds", "error", err)
		}
	}

	return result, nil
}

// statusLocked builds a snapshot. Callers hold mu.
func (c *Controller) statusLocked() status.Status {
	state := c.engine.State()

	return status.Status{
		Device:              c.settings.Device,
		Reading:             c.reading,
		HasReading:          c.hasReading,
		Flags:               c.flags,
		Thresholds:          c.thresholds,
		Link:                c.supervisor.Snapshot(),
		Muted:               state.Muted,
		CriticalActive:      state.CriticalActive,
		NormalStrikes:       state.NormalStrikeCount,
		NormalCooldownUntil: state.NormalCooldownUntil,
		UpdatedAt:           c.updatedAt,
	}
}

// apply drives the actuators and the presenter. Peripheral failures are logged only.
func (c *Controller) apply(ctx context.Context, d alarm.Decision) {
	var err error

	switch d.Buzzer {
	case alarm.BuzzerForceOn:
		err = c.deps.Sink.BuzzerSet(ctx, true, true)
	case alarm.BuzzerPulse:
		err = c.deps.Sink.BuzzerPulse(ctx, c.settings.PulseDuration, c.settings.PulseFrequency)
	case alarm.BuzzerOff:
		err = c.deps.Sink.BuzzerSet(ctx, false, false)
	case alarm.BuzzerOn:
		err = c.deps.Sink.BuzzerSet(ctx, true, false)
	case alarm.BuzzerNone:
	}

	if err != nil {
		logger.ErrorKV(ctx, "Failed to drive buzzer", "action", d.Buzzer, "error", err)
	}

	if d.WakeDisplay {
		c.deps.Presenter.WakeDisplay()
	}

	if d.Servo == alarm.ServoWave {
		if err = c.deps.Sink.ServoWave(ctx, c.settings.WaveRepeats); err != nil {
			logger.ErrorKV(ctx, "Failed to wave", "error", err)
		}
	}
}

// observeEvent logs and counts alarm transitions.
func (c *Controller) observeEvent(ctx context.Context, d alarm.Decision, r air.Reading) {
	switch d.Event {
	case alarm.EventCriticalEntered:
		c.deps.Metrics.ObserveFiring(tierCritical)
		logger.WarnKV(ctx, "Critical CO2 alarm", "co2", r.CO2)
	case alarm.EventCriticalCleared:
		logger.InfoKV(ctx, "Critical CO2 alarm cleared", "co2", r.CO2)
	case alarm.EventNormalFired:
		c.deps.Metrics.ObserveFiring(tierNormal)
		logger.WarnKV(ctx, "Air quality alarm",
			"temperature", r.Temperature,
			"humidity", r.Humidity,
			"co2", r.CO2,
			"voc", r.VOC,
			"muted", d.PulseMuted)
	case alarm.EventNone, alarm.EventCriticalHeld:
	}
}

func commandResult(result command.Result, err error) string {
	switch {
	case err != nil && errors.Is(err, air.ErrValidationRejected):
		return metrics.CommandRejected
	case err != nil:
		return metrics.CommandInvalid
	case len(result.Rejected) > 0:
		return metrics.CommandPartial
	default:
		return metrics.CommandApplied
	}
}

// frame converts a snapshot for the presenter.
func frame(s status.Status) device.Frame {
	return device.Frame{
		Reading:        s.Reading,
		Flags:          s.Flags,
		Thresholds:     s.Thresholds,
		Link:           s.Link,
		Muted:          s.Muted,
		CriticalActive: s.CriticalActive,
	}
}
