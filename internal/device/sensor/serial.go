package sensor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/logger"
)

const (
	// InitialCO2 is reported until the first plausible CO2 value arrives.
	InitialCO2 = 400
	// InitialVOC is reported until the first plausible VOC value arrives.
	InitialVOC = 0

	// MinCO2 and MaxCO2 bound the plausible eCO2 range in ppm.
	MinCO2 = 400
	MaxCO2 = 8000
)

// errNoFields is returned for a line without a single known field.
var errNoFields = errors.New("no sensor fields in line")

// Serial keeps the latest values parsed from a sensor bridge line stream.
type Serial struct {
	// port is the underlying line stream.
	port io.ReadCloser

	// mu guards the fields below.
	mu sync.Mutex
	// temperature is the last temperature, or the sentinel.
	temperature float64
	// humidity is the last humidity, or the sentinel.
	humidity float64
	// co2 is the last plausible CO2 value.
	co2 int
	// voc is the last plausible VOC value.
	voc int
}

// NewSerial wraps an already opened line stream.
func NewSerial(port io.ReadCloser) *Serial {
	return &Serial{
		port:        port,
		temperature: air.InvalidTemperature,
		humidity:    air.InvalidHumidity,
		co2:         InitialCO2,
		voc:         InitialVOC,
	}
}

// Read returns the latest values.
func (s *Serial) Read() air.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	return air.NewReading(s.temperature, s.humidity, s.co2, s.voc)
}

// Run consumes lines until the stream ends or ctx is cancelled.
// Cancelling ctx closes the port to unblock the pending read.
func (s *Serial) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "sensor")

	stop := context.AfterFunc(ctx, func() {
		_ = s.port.Close()
	})
	defer stop()

	scanner := bufio.NewScanner(s.port)
	scanner.Split(bufio.ScanLines)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		if err := s.ingest(line); err != nil {
			logger.DebugKV(ctx, "Skipped sensor line", "line", string(line), "error", err)
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read sensor stream: %w", err)
	}

	return io.ErrUnexpectedEOF
}

// Close releases the port.
func (s *Serial) Close() error {
	return s.port.Close()
}

// ingest applies one line of key=value fields.
//
//nolint:cyclop // One branch per sensor field.
func (s *Serial) ingest(line []byte) error {
	var (
		known            int
		temperature      *float64
		humidity         *float64
		co2, voc         *int
		co2Seen, vocSeen bool
	)

	for _, field := range bytes.Fields(line) {
		key, value, ok := splitField(string(field))
		if !ok {
			continue
		}

		switch key {
		case "t", "temp", "temperature":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				v = air.InvalidTemperature
			}

			temperature = &v
		case "h", "hum", "humidity":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				v = air.InvalidHumidity
			}

			humidity = &v
		case "co2", "eco2":
			co2Seen = true

			if v, err := strconv.Atoi(value); err == nil {
				co2 = &v
			}
		case "voc", "tvoc":
			vocSeen = true

			if v, err := strconv.Atoi(value); err == nil {
				voc = &v
			}
		default:
			continue
		}

		known++
	}

	if known == 0 {
		return errNoFields
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if temperature != nil {
		s.temperature = checkTemperature(*temperature)
	}

	if humidity != nil {
		s.humidity = checkHumidity(*humidity)
	}

	// The gas sensor reports both values at once and occasionally glitches;
	// an implausible pair keeps the previous values.
	if co2Seen || vocSeen {
		newCO2, newVOC := s.co2, s.voc
		if co2 != nil {
			newCO2 = *co2
		}

		if voc != nil {
			newVOC = *voc
		}

		if (!co2Seen || co2 != nil) && (!vocSeen || voc != nil) &&
			newCO2 >= MinCO2 && newCO2 <= MaxCO2 && newVOC >= 0 {
			s.co2, s.voc = newCO2, newVOC
		}
	}

	return nil
}

func splitField(field string) (string, string, bool) {
	key, value, ok := strings.Cut(field, "=")
	if !ok {
		key, value, ok = strings.Cut(field, ":")
	}

	if !ok || key == "" || value == "" {
		return "", "", false
	}

	return strings.ToLower(key), value, true
}

func checkTemperature(v float64) float64 {
	if math.IsNaN(v) || v < air.MinTemperature || v > air.MaxTemperature {
		return air.InvalidTemperature
	}

	return math.Round(v*10) / 10
}

func checkHumidity(v float64) float64 {
	if math.IsNaN(v) || v < air.MinHumidity || v > air.MaxHumidity {
		return air.InvalidHumidity
	}

	return math.Round(v*10) / 10
}
