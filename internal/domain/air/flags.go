package air

// Status codes used in the published payload.
const (
	StatusOK       = 0
	StatusAlarm    = 1
	StatusCritical = 2
)

// Flags are the per-field alarm results of one reading against one threshold set.
type Flags struct {
	Temperature bool
	Humidity    bool
	CO2         bool
	VOC         bool
	// CO2Critical is set when CO2 exceeds the critical threshold.
	CO2Critical bool
}

// AnyNormal reports whether any normal-tier threshold is exceeded.
// The CO2 flag counts here even while the critical tier is engaged.
func (f Flags) AnyNormal() bool {
	return f.Temperature || f.Humidity || f.CO2 || f.VOC
}

// TemperatureStatus returns the payload status code for temperature.
func (f Flags) TemperatureStatus() int { return boolStatus(f.Temperature) }

// HumidityStatus returns the payload status code for humidity.
func (f Flags) HumidityStatus() int { return boolStatus(f.Humidity) }

// VOCStatus returns the payload status code for VOC.
func (f Flags) VOCStatus() int { return boolStatus(f.VOC) }

// CO2Status returns StatusCritical above the critical threshold, otherwise 0 or 1.
func (f Flags) CO2Status() int {
	if f.CO2Critical {
		return StatusCritical
	}

	return boolStatus(f.CO2)
}

func boolStatus(v bool) int {
	if v {
		return StatusAlarm
	}

	return StatusOK
}
