package sensor

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/oshokin/air-alarm/internal/domain/air"
)

// Simulated values drift around a baseline; CO2 rises and falls over Period.
const (
	DefaultPeriod = 10 * time.Minute

	baseTemperature = 23.0
	baseHumidity    = 45.0
	baseCO2         = 900
	swingCO2        = 800
	baseVOC         = 150
)

// Simulated generates plausible readings without hardware.
type Simulated struct {
	// now returns the current time.
	now func() time.Time
	// start is the phase origin of the CO2 swing.
	start time.Time
	// period is the CO2 swing period.
	period time.Duration

	// mu guards the fields below.
	mu sync.Mutex
	// rnd adds measurement noise.
	rnd *rand.Rand
	// override replaces generated values when set.
	override *air.Reading
}

// SimulatedOption customizes a Simulated source.
type SimulatedOption func(*Simulated)

// WithClock sets the time source.
func WithClock(now func() time.Time) SimulatedOption {
	return func(s *Simulated) {
		s.now = now
	}
}

// WithPeriod sets the CO2 swing period.
func WithPeriod(period time.Duration) SimulatedOption {
	return func(s *Simulated) {
		if period > 0 {
			s.period = period
		}
	}
}

// WithSeed makes the noise reproducible.
func WithSeed(seed uint64) SimulatedOption {
	return func(s *Simulated) {
		s.rnd = rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // Noise only.
	}
}

// NewSimulated creates a simulated source.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		now:    time.Now,
		period: DefaultPeriod,
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // Noise only.
	}

	for _, opt := range opts {
		opt(s)
	}

	s.start = s.now()

	return s
}

// Set pins the values returned by Read until Reset is called.
func (s *Simulated) Set(r air.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.override = &r
}

// Reset returns to generated values.
func (s *Simulated) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.override = nil
}

// Read returns the pinned reading or a generated one.
func (s *Simulated) Read() air.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.override != nil {
		return *s.override
	}

	phase := 2 * math.Pi * float64(s.now().Sub(s.start)%s.period) / float64(s.period)
	wave := (1 - math.Cos(phase)) / 2

	temperature := math.Round((baseTemperature+s.noise(0.3))*10) / 10
	humidity := math.Round((baseHumidity+s.noise(1.0))*10) / 10
	co2 := baseCO2 + int(wave*swingCO2) + int(s.noise(20))
	voc := max(0, baseVOC+int(wave*swingCO2/2)+int(s.noise(10)))

	return air.NewReading(temperature, humidity, max(co2, MinCO2), voc)
}

// noise returns a uniform value in [-amplitude, amplitude].
func (s *Simulated) noise(amplitude float64) float64 {
	return (s.rnd.Float64()*2 - 1) * amplitude
}
