package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/air-alarm/internal/device"
	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/repository/thresholds"
	"github.com/oshokin/air-alarm/internal/transport"
)

const (
	testDataTopic       = "test/data"
	testControlTopic    = "test/control"
	testThresholdsTopic = "test/thresholds"
)

type fakeSource struct {
	mu      sync.Mutex
	reading air.Reading
}

func (f *fakeSource) Read() air.Reading {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reading
}

func (f *fakeSource) set(r air.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reading = r
}

type fakeSink struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSink) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeSink) BuzzerPulse(context.Context, time.Duration, int) error {
	f.record("pulse")
	return nil
}

func (f *fakeSink) BuzzerSet(_ context.Context, on, forced bool) error {
	f.record(fmt.Sprintf("buzzer on=%t forced=%t", on, forced))
	return nil
}

func (f *fakeSink) ServoWave(context.Context, int) error {
	f.record("wave")
	return nil
}

func (f *fakeSink) SetMute(_ context.Context, muted bool) error {
	f.record(fmt.Sprintf("mute=%t", muted))
	return nil
}

func (f *fakeSink) take() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	calls := f.calls
	f.calls = nil

	return calls
}

type fakePresenter struct {
	mu     sync.Mutex
	frames []device.Frame
	wakes  int
}

func (f *fakePresenter) Render(frame device.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.frames = append(f.frames, frame)
}

func (f *fakePresenter) WakeDisplay() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.wakes++
}

type fakeMessenger struct {
	mu          sync.Mutex
	connected   bool
	connectErr  error
	publishErr  error
	pollErr     error
	published   []transport.Message
	inbound     []transport.Message
	disconnects int
}

func (f *fakeMessenger) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connectErr != nil {
		return f.connectErr
	}

	f.connected = true

	return nil
}

func (f *fakeMessenger) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publishErr != nil {
		return f.publishErr
	}

	f.published = append(f.published, transport.Message{Topic: topic, Payload: payload})

	return nil
}

func (f *fakeMessenger) PollInbound() ([]transport.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	messages := f.inbound
	f.inbound = nil

	return messages, f.pollErr
}

func (f *fakeMessenger) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connected
}

func (f *fakeMessenger) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = false
	f.disconnects++
}

func (f *fakeMessenger) push(topic, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inbound = append(f.inbound, transport.Message{Topic: topic, Payload: []byte(payload)})
}

type fakeNetwork struct {
	mu         sync.Mutex
	up         bool
	connectErr error
}

func (f *fakeNetwork) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.connectErr != nil {
		return f.connectErr
	}

	f.up = true

	return nil
}

func (f *fakeNetwork) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.up
}

type fakeRepository struct {
	mu     sync.Mutex
	stored *air.Thresholds
	saves  int
}

func (f *fakeRepository) Load(_ context.Context, _ air.Thresholds) (air.Thresholds, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stored == nil {
		return air.Thresholds{}, thresholds.ErrNotFound
	}

	return *f.stored, nil
}

func (f *fakeRepository) Save(_ context.Context, t air.Thresholds) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stored = &t
	f.saves++

	return nil
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
