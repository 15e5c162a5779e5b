package air

import "math"

const (
	// InvalidTemperature is the sentinel reported when temperature is unavailable.
	InvalidTemperature = -99.9
	// InvalidHumidity is the sentinel reported when humidity is unavailable.
	InvalidHumidity = -1.0

	// MinTemperature and MaxTemperature bound the plausible temperature range in °C.
	MinTemperature = -40.0
	MaxTemperature = 85.0
	// MinHumidity and MaxHumidity bound relative humidity in %RH.
	MinHumidity = 0.0
	MaxHumidity = 100.0
)

// Reading is one sampled snapshot of the four monitored quantities.
// It is a value type and is never modified after creation.
type Reading struct {
	// Temperature in degrees Celsius.
	Temperature float64
	// Humidity in percent relative humidity.
	Humidity float64
	// CO2 concentration in ppm.
	CO2 int
	// VOC concentration in ppb.
	VOC int

	// TemperatureValid is false when Temperature holds a sentinel or out-of-range value.
	TemperatureValid bool
	// HumidityValid is false when Humidity holds a sentinel or out-of-range value.
	HumidityValid bool
	// CO2Valid is false when CO2 is negative.
	CO2Valid bool
	// VOCValid is false when VOC is negative.
	VOCValid bool
}

// NewReading builds a Reading and derives the validity flag of every field.
func NewReading(temperature, humidity float64, co2, voc int) Reading {
	return Reading{
		Temperature:      temperature,
		Humidity:         humidity,
		CO2:              co2,
		VOC:              voc,
		TemperatureValid: validTemperature(temperature),
		HumidityValid:    validHumidity(humidity),
		CO2Valid:         co2 >= 0,
		VOCValid:         voc >= 0,
	}
}

// Valid reports whether every field of the reading can be evaluated.
func (r Reading) Valid() bool {
	return r.TemperatureValid && r.HumidityValid && r.CO2Valid && r.VOCValid
}

func validTemperature(v float64) bool {
	if math.IsNaN(v) || v == InvalidTemperature {
		return false
	}

	return v >= MinTemperature && v <= MaxTemperature
}

func validHumidity(v float64) bool {
	if math.IsNaN(v) || v == InvalidHumidity {
		return false
	}

	return v >= MinHumidity && v <= MaxHumidity
}
