package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/air-alarm/internal/command"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/alarm"
	"github.com/oshokin/air-alarm/internal/domain/link"
	"github.com/oshokin/air-alarm/internal/domain/status"
	"github.com/oshokin/air-alarm/internal/metrics"
)

type harness struct {
	source     *fakeSource
	sink       *fakeSink
	presenter  *fakePresenter
	messenger  *fakeMessenger
	network    *fakeNetwork
	repository *fakeRepository
	clock      *clock
	controller *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		source:     &fakeSource{reading: air.NewReading(22, 40, 600, 50)},
		sink:       new(fakeSink),
		presenter:  new(fakePresenter),
		messenger:  new(fakeMessenger),
		network:    new(fakeNetwork),
		repository: new(fakeRepository),
		clock:      newClock(),
	}

	deps := Dependencies{
		Source:    h.source,
		Sink:      h.sink,
		Presenter: h.presenter,
		Messenger: h.messenger,
		Network:   h.network,
		Router: command.NewRouter(command.Topics{
			Control:    testControlTopic,
			Thresholds: testThresholdsTopic,
		}),
		Repository: h.repository,
		Metrics:    metrics.New(),
	}

	settings := Settings{
		Device:     "test-device",
		DataTopic:  testDataTopic,
		Thresholds: air.DefaultThresholds(),
		Alarm: alarm.Config{
			Cooldown:        300 * time.Second,
			StrikeThreshold: 2,
		},
		Link: link.Config{
			NetworkRetry:   15 * time.Second,
			MessagingRetry: 15 * time.Second,
		},
		PulseDuration:  300 * time.Millisecond,
		PulseFrequency: 1000,
		WaveRepeats:    3,
		ConnectTimeout: time.Second,
		PublishTimeout: time.Second,
	}

	h.controller = NewController(context.Background(), deps, settings, WithClock(h.clock.Now))
	t.Cleanup(h.controller.Close)

	return h
}

// connect drives the connectivity loop until both transports are up.
func (h *harness) connect(t *testing.T) {
	t.Helper()

	require.Equal(t, link.ActionConnectNetwork, h.controller.Step(context.Background()))
	require.Equal(t, link.ActionConnectMessaging, h.controller.Step(context.Background()))
	require.True(t, h.controller.Status().Link.Online())
}

// TestController_ThreeTickScenario debounces two strikes, fires once and then holds the cooldown.
func TestController_ThreeTickScenario(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.source.set(air.NewReading(31, 50, 1000, 100))

	require.NoError(t, h.controller.Tick(context.Background()))
	require.Empty(t, h.sink.take())
	require.Equal(t, 1, h.controller.Status().NormalStrikes)

	h.clock.Advance(2 * time.Second)
	require.NoError(t, h.controller.Tick(context.Background()))
	require.Equal(t, []string{"pulse", "wave"}, h.sink.take())
	require.Equal(t, 1, h.presenter.wakes)

	snapshot := h.controller.Status()
	require.Equal(t, h.clock.Now().Add(300*time.Second), snapshot.NormalCooldownUntil)
	require.True(t, snapshot.Flags.Temperature)

	h.clock.Advance(2 * time.Second)
	require.NoError(t, h.controller.Tick(context.Background()))
	require.Empty(t, h.sink.take())
	require.Len(t, h.presenter.frames, 3)
}

// TestController_InvalidReading leaves the state and the outputs untouched.
func TestController_InvalidReading(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.source.set(air.NewReading(air.InvalidTemperature, 50, 1000, 100))

	err := h.controller.Tick(context.Background())
	require.ErrorIs(t, err, air.ErrSensorInvalid)
	require.Empty(t, h.presenter.frames)
	require.Empty(t, h.sink.take())
	require.False(t, h.controller.Status().HasReading)
}

// TestController_CriticalIgnoresMute forces the buzzer on while muted.
func TestController_CriticalIgnoresMute(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	_, err := h.controller.ApplyCommand(context.Background(), command.Command{Kind: command.KindMute, On: true})
	require.NoError(t, err)
	require.Equal(t, []string{"mute=true", "buzzer on=false forced=false"}, h.sink.take())

	h.source.set(air.NewReading(22, 40, 3000, 50))
	require.NoError(t, h.controller.Tick(context.Background()))
	require.Equal(t, []string{"buzzer on=true forced=true"}, h.sink.take())

	snapshot := h.controller.Status()
	require.True(t, snapshot.CriticalActive)
	require.True(t, snapshot.Muted)
	require.Equal(t, air.StatusCritical, snapshot.Flags.CO2Status())
}

// TestController_Publish sends the sensor payload once messaging is connected.
func TestController_Publish(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	require.NoError(t, h.controller.Tick(context.Background()))
	require.Empty(t, h.messenger.published)

	h.connect(t)
	require.NoError(t, h.controller.Tick(context.Background()))
	require.Len(t, h.messenger.published, 1)

	message := h.messenger.published[0]
	require.Equal(t, testDataTopic, message.Topic)

	payload := new(structpb.Struct)
	require.NoError(t, protojson.Unmarshal(message.Payload, payload))

	fields := payload.AsMap()
	require.InDelta(t, 22, fields[status.KeyTemperature], 0.001)
	require.InDelta(t, 600, fields[status.KeyCO2], 0)
	require.InDelta(t, air.StatusOK, fields[status.KeyCO2Status], 0)
	require.Equal(t, "connected", fields[status.KeyMessaging])
	require.Equal(t, false, fields[status.KeyMuted])
}

// TestController_PublishFailure drops the broker session and schedules a retry.
func TestController_PublishFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.connect(t)

	h.messenger.publishErr = errors.New("broker gone")

	require.NoError(t, h.controller.Tick(context.Background()))

	snapshot := h.controller.Status()
	require.Equal(t, link.Connected, snapshot.Link.Network)
	require.Equal(t, link.Disconnected, snapshot.Link.Messaging)
	require.Equal(t, 1, h.messenger.disconnects)

	// No reconnect before the retry interval elapses.
	require.Equal(t, link.ActionNone, h.controller.Step(context.Background()))

	h.clock.Advance(15 * time.Second)
	h.messenger.publishErr = nil
	require.Equal(t, link.ActionConnectMessaging, h.controller.Step(context.Background()))
	require.Equal(t, link.Connected, h.controller.Status().Link.Messaging)
}

// TestController_NetworkLoss forces messaging down with the network.
func TestController_NetworkLoss(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.connect(t)

	h.network.mu.Lock()
	h.network.up = false
	h.network.mu.Unlock()

	require.Equal(t, link.ActionNone, h.controller.Step(context.Background()))

	snapshot := h.controller.Status()
	require.Equal(t, link.Disconnected, snapshot.Link.Network)
	require.Equal(t, link.Disconnected, snapshot.Link.Messaging)
	require.False(t, h.messenger.IsConnected())
}

// TestController_InboundCommands applies decoded messages and drops garbage.
func TestController_InboundCommands(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.connect(t)
	h.sink.take()

	h.messenger.push(testControlTopic, `{"command":"MUTE","status":"ON"}`)
	h.messenger.push(testThresholdsTopic, `{"schwelle_CO2": 1200, "schwelle_hum": 140}`)
	h.messenger.push(testControlTopic, `not json`)
	h.messenger.push(testControlTopic, `{"command":"REBOOT"}`)
	h.messenger.push("other/topic", `{}`)

	require.Equal(t, link.ActionDrainInbound, h.controller.Step(context.Background()))

	snapshot := h.controller.Status()
	require.True(t, snapshot.Muted)
	require.Equal(t, 1200, snapshot.Thresholds.CO2)
	require.InDelta(t, air.DefaultHumidityThreshold, snapshot.Thresholds.Humidity, 0)
	require.Equal(t, 1, h.repository.saves)
	require.Equal(t, []string{"mute=true", "buzzer on=false forced=false"}, h.sink.take())
}

// TestController_DrainFailure drops the session when the inbound queue reports a loss.
func TestController_DrainFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.connect(t)

	h.messenger.pollErr = errors.New("connection lost")

	require.Equal(t, link.ActionDrainInbound, h.controller.Step(context.Background()))
	require.Equal(t, link.Disconnected, h.controller.Status().Link.Messaging)
}

// TestController_ApplyThresholds reports accepted and rejected fields.
func TestController_ApplyThresholds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	temperature, humidity := 27.5, 140.0
	result, err := h.controller.ApplyCommand(context.Background(), command.Command{
		Kind: command.KindThresholds,
		Thresholds: air.ThresholdUpdate{
			Temperature: &temperature,
			Humidity:    &humidity,
		},
		Rejected: []string{command.KeyVOC},
	})
	require.NoError(t, err)
	require.Equal(t, []string{command.KeyTemperature}, result.Accepted)
	require.Equal(t, []string{command.KeyVOC, command.KeyHumidity}, result.Rejected)
	require.InDelta(t, 27.5, h.controller.Thresholds().Temperature, 0)

	_, err = h.controller.ApplyCommand(context.Background(), command.Command{
		Kind:       command.KindThresholds,
		Thresholds: air.ThresholdUpdate{Humidity: &humidity},
	})
	require.ErrorIs(t, err, air.ErrValidationRejected)
	require.Equal(t, 1, h.repository.saves)
}

// TestController_BuzzerOffAcknowledgesCritical clears the latch until the next critical tick.
func TestController_BuzzerOffAcknowledgesCritical(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.source.set(air.NewReading(22, 40, 3000, 50))
	require.NoError(t, h.controller.Tick(context.Background()))
	require.True(t, h.controller.Status().CriticalActive)

	_, err := h.controller.ApplyCommand(context.Background(), command.Command{Kind: command.KindBuzzer})
	require.NoError(t, err)
	require.False(t, h.controller.Status().CriticalActive)
}

// TestController_Restore replaces the startup thresholds with the persisted set.
func TestController_Restore(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	require.NoError(t, h.controller.Restore(context.Background()))
	require.Equal(t, air.DefaultThresholds(), h.controller.Thresholds())

	stored := air.DefaultThresholds()
	stored.CO2 = 1100
	h.repository.stored = &stored

	require.NoError(t, h.controller.Restore(context.Background()))
	require.Equal(t, 1100, h.controller.Thresholds().CO2)
}

// TestController_Watch streams snapshots and ends when the controller closes.
func TestController_Watch(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	updates := h.controller.Watch(context.Background())

	require.NoError(t, h.controller.Tick(context.Background()))

	select {
	case snapshot := <-updates:
		require.True(t, snapshot.HasReading)
		require.Equal(t, "test-device", snapshot.Device)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot received")
	}

	h.controller.Close()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	closed := h.controller.Watch(context.Background())
	_, ok := <-closed
	require.False(t, ok)
}
