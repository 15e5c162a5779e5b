package air

import (
	"errors"
	"fmt"
	"math"
)

// Default threshold values applied at startup.
const (
	DefaultTemperatureThreshold = 30.0
	DefaultHumidityThreshold    = 60.0
	DefaultCO2Threshold         = 1500
	DefaultVOCThreshold         = 1000
	DefaultCO2CriticalThreshold = 2500
)

// Threshold field names, shared by logs, metrics and rejection reports.
const (
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldCO2         = "co2"
	FieldVOC         = "voc"
	FieldCO2Critical = "co2_critical"
)

// Thresholds is the mutable alarm configuration.
// Every setter validates its own field and leaves the prior value intact on rejection.
type Thresholds struct {
	// Temperature alarm threshold in °C.
	Temperature float64
	// Humidity alarm threshold in %RH, 0..100 inclusive.
	Humidity float64
	// CO2 normal-tier alarm threshold in ppm, strictly positive.
	CO2 int
	// VOC alarm threshold in ppb, non-negative.
	VOC int
	// CO2Critical is the CO2 level in ppm above which the critical tier engages.
	CO2Critical int
}

// DefaultThresholds returns the factory threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Temperature: DefaultTemperatureThreshold,
		Humidity:    DefaultHumidityThreshold,
		CO2:         DefaultCO2Threshold,
		VOC:         DefaultVOCThreshold,
		CO2Critical: DefaultCO2CriticalThreshold,
	}
}

// SetTemperature replaces the temperature threshold if v is a finite number.
func (t *Thresholds) SetTemperature(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return rejected(FieldTemperature, v)
	}

	t.Temperature = v

	return nil
}

// SetHumidity replaces the humidity threshold if v lies within 0..100.
func (t *Thresholds) SetHumidity(v float64) error {
	if math.IsNaN(v) || v < MinHumidity || v > MaxHumidity {
		return rejected(FieldHumidity, v)
	}

	t.Humidity = v

	return nil
}

// SetCO2 replaces the CO2 threshold if v is positive.
func (t *Thresholds) SetCO2(v int) error {
	if v <= 0 {
		return rejected(FieldCO2, v)
	}

	t.CO2 = v

	return nil
}

// SetVOC replaces the VOC threshold if v is not negative.
func (t *Thresholds) SetVOC(v int) error {
	if v < 0 {
		return rejected(FieldVOC, v)
	}

	t.VOC = v

	return nil
}

// SetCO2Critical replaces the critical CO2 threshold if v is positive.
func (t *Thresholds) SetCO2Critical(v int) error {
	if v <= 0 {
		return rejected(FieldCO2Critical, v)
	}

	t.CO2Critical = v

	return nil
}

// Validate checks every field against its declared range.
func (t Thresholds) Validate() error {
	probe := Thresholds{}

	return errors.Join(
		probe.SetTemperature(t.Temperature),
		probe.SetHumidity(t.Humidity),
		probe.SetCO2(t.CO2),
		probe.SetVOC(t.VOC),
		probe.SetCO2Critical(t.CO2Critical),
	)
}

// Apply merges a partial update field by field.
// It returns the names of the accepted fields and a joined error describing
// every rejected one; rejected fields keep their previous values.
func (t *Thresholds) Apply(u ThresholdUpdate) ([]string, error) {
	var (
		accepted []string
		errs     []error
	)

	record := func(field string, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}

		accepted = append(accepted, field)
	}

	if u.Temperature != nil {
		record(FieldTemperature, t.SetTemperature(*u.Temperature))
	}

	if u.Humidity != nil {
		record(FieldHumidity, t.SetHumidity(*u.Humidity))
	}

	if u.CO2 != nil {
		record(FieldCO2, t.SetCO2(*u.CO2))
	}

	if u.VOC != nil {
		record(FieldVOC, t.SetVOC(*u.VOC))
	}

	if u.CO2Critical != nil {
		record(FieldCO2Critical, t.SetCO2Critical(*u.CO2Critical))
	}

	return accepted, errors.Join(errs...)
}

// Evaluate computes the per-field alarm flags of r against t. Comparisons are strict.
func (t Thresholds) Evaluate(r Reading) Flags {
	return Flags{
		Temperature: r.Temperature > t.Temperature,
		Humidity:    r.Humidity > t.Humidity,
		CO2:         r.CO2 > t.CO2,
		VOC:         r.VOC > t.VOC,
		CO2Critical: r.CO2 > t.CO2Critical,
	}
}

// ThresholdUpdate is a partial threshold set; nil fields are left untouched.
type ThresholdUpdate struct {
	Temperature *float64
	Humidity    *float64
	CO2         *int
	VOC         *int
	CO2Critical *int
}

// Empty reports whether the update carries no fields at all.
func (u ThresholdUpdate) Empty() bool {
	return u.Temperature == nil && u.Humidity == nil && u.CO2 == nil && u.VOC == nil && u.CO2Critical == nil
}

// Fields returns the names of the fields present in the update.
func (u ThresholdUpdate) Fields() []string {
	var fields []string

	if u.Temperature != nil {
		fields = append(fields, FieldTemperature)
	}

	if u.Humidity != nil {
		fields = append(fields, FieldHumidity)
	}

	if u.CO2 != nil {
		fields = append(fields, FieldCO2)
	}

	if u.VOC != nil {
		fields = append(fields, FieldVOC)
	}

	if u.CO2Critical != nil {
		fields = append(fields, FieldCO2Critical)
	}

	return fields
}

func rejected(field string, value any) error {
	return fmt.Errorf("%s = %v: %w", field, value, ErrValidationRejected)
}
