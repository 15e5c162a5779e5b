package status

import (
	"time"

	"github.com/oshokin/air-alarm/internal/domain/air"
	"github.com/oshokin/air-alarm/internal/domain/link"
)

// Payload keys of the published sensor data.
const (
	KeyTemperature       = "temperature"
	KeyTemperatureStatus = "temperature_status"
	KeyHumidity          = "humidity"
	KeyHumidityStatus    = "humidity_status"
	KeyCO2               = "co2"
	KeyCO2Status         = "co2_status"
	KeyVOC               = "voc"
	KeyVOCStatus         = "voc_status"
	KeyNetwork           = "network"
	KeyMessaging         = "messaging"
	KeyMuted             = "muted"
	KeyCriticalActive    = "critical_active"

	// Local-only keys of the extended view.
	KeyDevice        = "device"
	KeyHasReading    = "has_reading"
	KeyThresholds    = "thresholds"
	KeyStrikes       = "normal_strikes"
	KeyCooldownUntil = "normal_cooldown_until"
	KeyUpdatedAt     = "updated_at"
)

// Status is a consistent snapshot of the device.
type Status struct {
	// Device is the configured device name.
	Device string
	// Reading is the last valid reading.
	Reading air.Reading
	// HasReading is false until the first valid reading was evaluated.
	HasReading bool
	// Flags are the alarm flags of Reading.
	Flags air.Flags
	// Thresholds currently in effect.
	Thresholds air.Thresholds
	// Link is the state of both transports.
	Link link.Snapshot
	// Muted reports the mute flag.
	Muted bool
	// CriticalActive reports a latched critical CO2 alarm.
	CriticalActive bool
	// NormalStrikes is the current strike count of the normal tier.
	NormalStrikes int
	// NormalCooldownUntil is the end of the normal-tier cooldown, zero when none.
	NormalCooldownUntil time.Time
	// UpdatedAt is the time of the last evaluated tick.
	UpdatedAt time.Time
}

// Published returns the sensor payload sent to the broker.
func (s Status) Published() map[string]any {
	return map[string]any{
		KeyTemperature:       s.Reading.Temperature,
		KeyTemperatureStatus: s.Flags.TemperatureStatus(),
		KeyHumidity:          s.Reading.Humidity,
		KeyHumidityStatus:    s.Flags.HumidityStatus(),
		KeyCO2:               s.Reading.CO2,
		KeyCO2Status:         s.Flags.CO2Status(),
		KeyVOC:               s.Reading.VOC,
		KeyVOCStatus:         s.Flags.VOCStatus(),
		KeyNetwork:           s.Link.Network.String(),
		KeyMessaging:         s.Link.Messaging.String(),
		KeyMuted:             s.Muted,
		KeyCriticalActive:    s.CriticalActive,
	}
}

// Extended returns the published payload plus the local-only details.
func (s Status) Extended() map[string]any {
	fields := s.Published()

	fields[KeyDevice] = s.Device
	fields[KeyHasReading] = s.HasReading
	fields[KeyStrikes] = s.NormalStrikes
	fields[KeyThresholds] = map[string]any{
		air.FieldTemperature: s.Thresholds.Temperature,
		air.FieldHumidity:    s.Thresholds.Humidity,
		air.FieldCO2:         s.Thresholds.CO2,
		air.FieldVOC:         s.Thresholds.VOC,
		air.FieldCO2Critical: s.Thresholds.CO2Critical,
	}

	if !s.NormalCooldownUntil.IsZero() {
		fields[KeyCooldownUntil] = s.NormalCooldownUntil.UTC().Format(time.RFC3339)
	}

	if !s.UpdatedAt.IsZero() {
		fields[KeyUpdatedAt] = s.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return fields
}
