package command

import (
	"errors"

	"github.com/oshokin/air-alarm/internal/domain/air"
)

// Kind is the decoded command type.
type Kind int

const (
	// KindMute sets or clears global mute.
	KindMute Kind = iota + 1
	// KindWave triggers the servo wave gesture.
	KindWave
	// KindBuzzer switches the buzzer on or off.
	KindBuzzer
	// KindThresholds carries a partial threshold update.
	KindThresholds
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindMute:
		return "mute"
	case KindWave:
		return "wave"
	case KindBuzzer:
		return "buzzer"
	case KindThresholds:
		return "thresholds"
	default:
		return "unknown"
	}
}

// Command is one decoded inbound command.
type Command struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind Kind
	// On is the requested mute or buzzer state.
	On bool
	// Thresholds holds the accepted fields of a threshold update.
	Thresholds air.ThresholdUpdate
	// Rejected lists threshold fields dropped by validation.
	Rejected []string
}

// Wire identifiers of the control topic.
const (
	KeyCommand = "command"
	KeyStatus  = "status"
	KeyAction  = "action"

	CommandMute   = "MUTE"
	CommandFlag   = "FLAG"
	CommandBuzzer = "BUZZER"

	StatusOn  = "ON"
	StatusOff = "OFF"

	ActionWave = "WAVE"
)

// Wire keys of the thresholds topic.
const (
	KeyTemperature = "schwelle_temp"
	KeyHumidity    = "schwelle_hum"
	KeyCO2         = "schwelle_CO2"
	KeyVOC         = "schwelle_VOC"
	KeyCO2Critical = "schwelle_CO2_kritisch"
)

// ErrUnknownCommand is returned for command identifiers or topics the router does not handle.
// Callers ignore it to stay forward compatible.
var ErrUnknownCommand = errors.New("unknown command")

// Result reports the outcome of an applied command.
type Result struct {
	// Accepted lists the threshold fields that were changed.
	Accepted []string
	// Rejected lists the threshold fields that kept their previous value.
	Rejected []string
}

// FieldKey returns the thresholds-topic key of an air.Field* name, or the name itself.
func FieldKey(field string) string {
	switch field {
	case air.FieldTemperature:
		return KeyTemperature
	case air.FieldHumidity:
		return KeyHumidity
	case air.FieldCO2:
		return KeyCO2
	case air.FieldVOC:
		return KeyVOC
	case air.FieldCO2Critical:
		return KeyCO2Critical
	default:
		return field
	}
}
