package command

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/air-alarm/internal/domain/air"
)

// Topics names the inbound topics the router understands.
type Topics struct {
	// Control carries MUTE/FLAG/BUZZER commands.
	Control string
	// Thresholds carries partial threshold updates.
	Thresholds string
}

// Router decodes inbound payloads into commands.
type Router struct {
	// topics maps inbound topics to decoders.
	topics Topics
}

// NewRouter creates a router for the given topics.
func NewRouter(topics Topics) *Router {
	return &Router{
		topics: topics,
	}
}

// Decode parses a raw JSON payload received on topic.
// Structurally invalid payloads yield an error wrapping air.ErrDecode;
// unhandled topics and command identifiers yield ErrUnknownCommand.
func (r *Router) Decode(topic string, payload []byte) (Command, error) {
	var decoder func(*structpb.Struct) (Command, error)

	switch topic {
	case r.topics.Control:
		decoder = r.DecodeControl
	case r.topics.Thresholds:
		decoder = r.DecodeThresholds
	default:
		return Command{}, fmt.Errorf("topic %q: %w", topic, ErrUnknownCommand)
	}

	fields := new(structpb.Struct)
	if err := protojson.Unmarshal(payload, fields); err != nil {
		return Command{}, fmt.Errorf("%w: %w", air.ErrDecode, err)
	}

	return decoder(fields)
}

// DecodeControl interprets a control-topic object.
func (r *Router) DecodeControl(fields *structpb.Struct) (Command, error) {
	name, err := stringField(fields, KeyCommand)
	if err != nil {
		return Command{}, err
	}

	switch name {
	case CommandMute:
		// Anything but ON unmutes, including a missing status.
		on := fields.GetFields()[KeyStatus].GetStringValue() == StatusOn

		return Command{Kind: KindMute, On: on}, nil
	case CommandBuzzer:
		on, err := onOff(fields)
		if err != nil {
			return Command{}, err
		}

		return Command{Kind: KindBuzzer, On: on}, nil
	case CommandFlag:
		action, _ := stringField(fields, KeyAction)
		if action != ActionWave {
			return Command{}, fmt.Errorf("flag action %q: %w", action, ErrUnknownCommand)
		}

		return Command{Kind: KindWave}, nil
	default:
		return Command{}, fmt.Errorf("command %q: %w", name, ErrUnknownCommand)
	}
}

// DecodeThresholds interprets a thresholds-topic object.
// Every field is type- and range-checked on its own; failing fields end up in Command.Rejected.
func (r *Router) DecodeThresholds(fields *structpb.Struct) (Command, error) {
	if fields == nil {
		return Command{}, fmt.Errorf("%w: empty thresholds payload", air.ErrDecode)
	}

	var (
		cmd   = Command{Kind: KindThresholds}
		probe air.Thresholds
	)

	if v, ok := numberField(fields, KeyTemperature, &cmd); ok {
		if probe.SetTemperature(v) == nil {
			cmd.Thresholds.Temperature = &v
		} else {
			cmd.Rejected = append(cmd.Rejected, KeyTemperature)
		}
	}

	if v, ok := numberField(fields, KeyHumidity, &cmd); ok {
		if probe.SetHumidity(v) == nil {
			cmd.Thresholds.Humidity = &v
		} else {
			cmd.Rejected = append(cmd.Rejected, KeyHumidity)
		}
	}

	if v, ok := intField(fields, KeyCO2, &cmd); ok {
		if probe.SetCO2(v) == nil {
			cmd.Thresholds.CO2 = &v
		} else {
			cmd.Rejected = append(cmd.Rejected, KeyCO2)
		}
	}

	if v, ok := intField(fields, KeyVOC, &cmd); ok {
		if probe.SetVOC(v) == nil {
			cmd.Thresholds.VOC = &v
		} else {
			cmd.Rejected = append(cmd.Rejected, KeyVOC)
		}
	}

	if v, ok := intField(fields, KeyCO2Critical, &cmd); ok {
		if probe.SetCO2Critical(v) == nil {
			cmd.Thresholds.CO2Critical = &v
		} else {
			cmd.Rejected = append(cmd.Rejected, KeyCO2Critical)
		}
	}

	return cmd, nil
}

// ThresholdsToStruct renders a full threshold set in the thresholds-topic schema.
func ThresholdsToStruct(t air.Thresholds) *structpb.Struct {
	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			KeyTemperature: structpb.NewNumberValue(t.Temperature),
			KeyHumidity:    structpb.NewNumberValue(t.Humidity),
			KeyCO2:         structpb.NewNumberValue(float64(t.CO2)),
			KeyVOC:         structpb.NewNumberValue(float64(t.VOC)),
			KeyCO2Critical: structpb.NewNumberValue(float64(t.CO2Critical)),
		},
	}
}

// ControlToStruct renders a mute, wave or buzzer command in the control-topic schema.
func ControlToStruct(cmd Command) (*structpb.Struct, error) {
	status := StatusOff
	if cmd.On {
		status = StatusOn
	}

	fields := map[string]*structpb.Value{}

	switch cmd.Kind {
	case KindMute:
		fields[KeyCommand] = structpb.NewStringValue(CommandMute)
		fields[KeyStatus] = structpb.NewStringValue(status)
	case KindBuzzer:
		fields[KeyCommand] = structpb.NewStringValue(CommandBuzzer)
		fields[KeyStatus] = structpb.NewStringValue(status)
	case KindWave:
		fields[KeyCommand] = structpb.NewStringValue(CommandFlag)
		fields[KeyAction] = structpb.NewStringValue(ActionWave)
	case KindThresholds:
		return nil, fmt.Errorf("%w: %s is not a control command", ErrUnknownCommand, cmd.Kind)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Kind)
	}

	return &structpb.Struct{Fields: fields}, nil
}

// UpdateToStruct renders a partial threshold update in the thresholds-topic schema.
func UpdateToStruct(u air.ThresholdUpdate) *structpb.Struct {
	fields := map[string]*structpb.Value{}

	if u.Temperature != nil {
		fields[KeyTemperature] = structpb.NewNumberValue(*u.Temperature)
	}

	if u.Humidity != nil {
		fields[KeyHumidity] = structpb.NewNumberValue(*u.Humidity)
	}

	if u.CO2 != nil {
		fields[KeyCO2] = structpb.NewNumberValue(float64(*u.CO2))
	}

	if u.VOC != nil {
		fields[KeyVOC] = structpb.NewNumberValue(float64(*u.VOC))
	}

	if u.CO2Critical != nil {
		fields[KeyCO2Critical] = structpb.NewNumberValue(float64(*u.CO2Critical))
	}

	return &structpb.Struct{Fields: fields}
}

// stringField returns a required string field.
func stringField(fields *structpb.Struct, key string) (string, error) {
	value, ok := fields.GetFields()[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", air.ErrDecode, key)
	}

	s, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string", air.ErrDecode, key)
	}

	return s.StringValue, nil
}

// onOff reads the status field of MUTE and BUZZER commands.
func onOff(fields *structpb.Struct) (bool, error) {
	status, err := stringField(fields, KeyStatus)
	if err != nil {
		return false, err
	}

	switch status {
	case StatusOn:
		return true, nil
	case StatusOff:
		return false, nil
	default:
		return false, fmt.Errorf("%w: status %q", air.ErrDecode, status)
	}
}

// numberField returns a present numeric field. Present fields of another type
// are recorded as rejected.
func numberField(fields *structpb.Struct, key string, cmd *Command) (float64, bool) {
	value, ok := fields.GetFields()[key]
	if !ok {
		return 0, false
	}

	n, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		cmd.Rejected = append(cmd.Rejected, key)
		return 0, false
	}

	return n.NumberValue, true
}

// intField is numberField truncated towards zero, rejecting values outside the int32 range.
func intField(fields *structpb.Struct, key string, cmd *Command) (int, bool) {
	v, ok := numberField(fields, key, cmd)
	if !ok {
		return 0, false
	}

	if v > math.MaxInt32 || v < math.MinInt32 {
		cmd.Rejected = append(cmd.Rejected, key)
		return 0, false
	}

	return int(math.Trunc(v)), true
}
