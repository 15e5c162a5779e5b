package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the appliance.
type Config struct {
	// Device identifies this appliance.
	Device DeviceConfig `yaml:"device"`
	// MQTT configures the broker session.
	MQTT MQTTConfig `yaml:"mqtt"`
	// Network configures the network transport supervision.
	Network NetworkConfig `yaml:"network"`
	// Alarm configures debouncing and the startup thresholds.
	Alarm AlarmConfig `yaml:"alarm"`
	// Sensor selects and configures the sensor source.
	Sensor SensorConfig `yaml:"sensor"`
	// Actuator configures buzzer and servo gestures.
	Actuator ActuatorConfig `yaml:"actuator"`
	// Intervals holds the loop cadences.
	Intervals IntervalsConfig `yaml:"intervals"`
	// Timeouts bounds blocking transport operations.
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	// ControlAddress is the local gRPC control API address.
	ControlAddress string `yaml:"control_addr"`
	// HTTPAddress serves /metrics, /healthz and /status. Empty disables it.
	HTTPAddress string `yaml:"http_addr"`
	// ThresholdsFile persists remotely updated thresholds. Empty disables persistence.
	ThresholdsFile string `yaml:"thresholds_file"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DeviceConfig identifies the appliance.
type DeviceConfig struct {
	// Name is used in logs and as the MQTT client ID prefix.
	Name string `yaml:"name"`
}

// MQTTConfig configures the broker session.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. tcp://192.168.178.56:1883.
	Broker string `yaml:"broker"`
	// ClientID is the MQTT client identifier. Generated once when empty.
	ClientID string `yaml:"client_id"`
	// Username for broker authentication.
	Username string `yaml:"username,omitempty"`
	// Password for broker authentication.
	Password string `yaml:"password,omitempty"`
	// KeepAlive is the MQTT keep-alive period.
	KeepAlive time.Duration `yaml:"keep_alive"`
	// QoS used for publish and subscribe.
	QoS byte `yaml:"qos"`
	// Retain marks published sensor data as retained.
	Retain bool `yaml:"retain"`
	// RetryInterval is the fixed wait before reconnecting to the broker.
	RetryInterval time.Duration `yaml:"retry_interval"`
	// InboundQueue bounds the number of buffered inbound messages.
	InboundQueue int `yaml:"inbound_queue"`
	// Debug routes the MQTT library's debug log to the application logger.
	Debug bool `yaml:"debug"`
	// Topics lists the topics used by the device.
	Topics TopicsConfig `yaml:"topics"`
}

// TopicsConfig lists the MQTT topics.
type TopicsConfig struct {
	// Data receives the published sensor payload.
	Data string `yaml:"data"`
	// Control delivers MUTE/FLAG/BUZZER commands.
	Control string `yaml:"control"`
	// Thresholds delivers threshold updates.
	Thresholds string `yaml:"thresholds"`
}

// NetworkConfig configures the network transport.
type NetworkConfig struct {
	// Interface is the network interface to supervise. Empty means any non-loopback interface.
	Interface string `yaml:"interface"`
	// RetryInterval is the fixed wait before reconnecting the network.
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// AlarmConfig configures the alarm engine.
type AlarmConfig struct {
	// Cooldown is the minimum time between two normal-tier alarms.
	Cooldown time.Duration `yaml:"cooldown"`
	// StrikeThreshold is the number of consecutive exceedances required to fire.
	StrikeThreshold int `yaml:"strike_threshold"`
	// Thresholds are applied at startup unless a persisted set exists.
	Thresholds ThresholdsConfig `yaml:"thresholds"`
}

// ThresholdsConfig mirrors the threshold set in YAML form.
type ThresholdsConfig struct {
	Temperature float64 `yaml:"temperature"`
	Humidity    float64 `yaml:"humidity"`
	CO2         int     `yaml:"co2"`
	VOC         int     `yaml:"voc"`
	CO2Critical int     `yaml:"co2_critical"`
}

// SensorConfig selects the sensor source.
type SensorConfig struct {
	// Kind is "serial" or "simulated".
	Kind string `yaml:"kind"`
	// Device is the serial device path for the serial kind.
	Device string `yaml:"device"`
	// Baud is the serial line speed.
	Baud uint `yaml:"baud"`
}

// ActuatorConfig configures buzzer and servo gestures.
type ActuatorConfig struct {
	// PulseDuration is the length of a short beep.
	PulseDuration time.Duration `yaml:"pulse_duration"`
	// PulseFrequency is the beep frequency in Hz.
	PulseFrequency int `yaml:"pulse_frequency"`
	// WaveRepeats is the number of back-and-forth servo movements per wave.
	WaveRepeats int `yaml:"wave_repeats"`
	// WaveStep is the pause between two servo positions.
	WaveStep time.Duration `yaml:"wave_step"`
}

// IntervalsConfig holds loop cadences.
type IntervalsConfig struct {
	// Tick is the sensor read/evaluate/publish period.
	Tick time.Duration `yaml:"tick"`
	// Loop is the connectivity loop period.
	Loop time.Duration `yaml:"loop"`
	// Backlight is the display idle timeout.
	Backlight time.Duration `yaml:"backlight"`
}

// TimeoutsConfig bounds blocking operations.
type TimeoutsConfig struct {
	// Connect bounds network and broker connect attempts.
	Connect time.Duration `yaml:"connect"`
	// Publish bounds a single publish or subscribe.
	Publish time.Duration `yaml:"publish"`
	// Call bounds a single control API call made by air-alarm-ctl.
	Call time.Duration `yaml:"call"`
}

const (
	// DefaultConfigFilename is the default filename for device settings.
	DefaultConfigFilename = "air-alarm-settings.yaml"

	// DefaultFilePermissions is the default file permission for written files.
	DefaultFilePermissions = 0o600

	// SensorKindSerial reads a line protocol from a serial sensor bridge.
	SensorKindSerial = "serial"
	// SensorKindSimulated generates readings in-process.
	SensorKindSimulated = "simulated"
)

// Defaults applied by Validate.
const (
	DefaultDeviceName       = "air-alarm"
	DefaultKeepAlive        = 60 * time.Second
	DefaultRetryInterval    = 15 * time.Second
	DefaultInboundQueue     = 100
	DefaultDataTopic        = "air-alarm/sensor-data"
	DefaultControlTopic     = "air-alarm/device-control"
	DefaultThresholdsTopic  = "air-alarm/thresholds"
	DefaultCooldown         = 300 * time.Second
	DefaultStrikeThreshold  = 2
	DefaultBaud             = 115200
	DefaultPulseDuration    = 300 * time.Millisecond
	DefaultPulseFrequency   = 1000
	DefaultWaveRepeats      = 3
	DefaultWaveStep         = 400 * time.Millisecond
	DefaultTickInterval     = 2 * time.Second
	DefaultLoopInterval     = 200 * time.Millisecond
	DefaultBacklightTimeout = 15 * time.Second
	DefaultConnectTimeout   = 20 * time.Second
	DefaultPublishTimeout   = 5 * time.Second
	DefaultCallTimeout      = 5 * time.Second
	DefaultControlAddress   = "127.0.0.1:50061"
	DefaultLogLevel         = "info"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBrokerRequired is returned when the broker URL is missing.
	errBrokerRequired = errors.New("mqtt broker must be provided")
	// errUnsupportedScheme is returned for broker URLs paho cannot dial.
	errUnsupportedScheme = errors.New("unsupported broker scheme")
	// errSerialDeviceRequired is returned when the serial sensor has no device path.
	errSerialDeviceRequired = errors.New("serial sensor device must be provided")
	// errUnknownSensorKind is returned for an unsupported sensor kind.
	errUnknownSensorKind = errors.New("unknown sensor kind")
	// errInvalidQoS is returned for a QoS outside 0..2.
	errInvalidQoS = errors.New("mqtt qos must be 0, 1 or 2")
	// errDuplicateTopic is returned when two roles share one topic.
	errDuplicateTopic = errors.New("mqtt topics must be distinct")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may hold broker credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults.
//
//nolint:cyclop,funlen // Flat list of independent checks.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Device.Name == "" {
		cfg.Device.Name = DefaultDeviceName
	}

	if err := validateMQTT(&cfg.MQTT, cfg.Device.Name); err != nil {
		return err
	}

	setDuration(&cfg.Network.RetryInterval, DefaultRetryInterval)
	setDuration(&cfg.Alarm.Cooldown, DefaultCooldown)

	if cfg.Alarm.StrikeThreshold <= 0 {
		cfg.Alarm.StrikeThreshold = DefaultStrikeThreshold
	}

	if err := validateThresholds(&cfg.Alarm.Thresholds); err != nil {
		return err
	}

	if err := validateSensor(&cfg.Sensor); err != nil {
		return err
	}

	setDuration(&cfg.Actuator.PulseDuration, DefaultPulseDuration)
	setDuration(&cfg.Actuator.WaveStep, DefaultWaveStep)

	if cfg.Actuator.PulseFrequency <= 0 {
		cfg.Actuator.PulseFrequency = DefaultPulseFrequency
	}

	if cfg.Actuator.WaveRepeats <= 0 {
		cfg.Actuator.WaveRepeats = DefaultWaveRepeats
	}

	setDuration(&cfg.Intervals.Tick, DefaultTickInterval)
	setDuration(&cfg.Intervals.Loop, DefaultLoopInterval)
	setDuration(&cfg.Intervals.Backlight, DefaultBacklightTimeout)
	setDuration(&cfg.Timeouts.Connect, DefaultConnectTimeout)
	setDuration(&cfg.Timeouts.Publish, DefaultPublishTimeout)
	setDuration(&cfg.Timeouts.Call, DefaultCallTimeout)

	if cfg.ControlAddress == "" {
		cfg.ControlAddress = DefaultControlAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ControlAddress); err != nil {
		return fmt.Errorf("invalid control address: %w", err)
	}

	if cfg.HTTPAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.HTTPAddress); err != nil {
			return fmt.Errorf("invalid http address: %w", err)
		}
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}

// validateMQTT checks the broker section and fills in its defaults.
func validateMQTT(m *MQTTConfig, deviceName string) error {
	if m.Broker == "" {
		return errBrokerRequired
	}

	broker, err := url.Parse(m.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	switch strings.ToLower(broker.Scheme) {
	case "tcp", "mqtt", "ssl", "tls", "mqtts", "ws", "wss":
	default:
		return fmt.Errorf("%w: %q", errUnsupportedScheme, broker.Scheme)
	}

	if broker.Host == "" {
		return fmt.Errorf("invalid broker URL %q: missing host", m.Broker)
	}

	if m.ClientID == "" {
		// Generated once; Save persists it so reconnects reuse the same session ID.
		m.ClientID = deviceName + "-" + uuid.NewString()[:8]
	}

	if m.QoS > 2 {
		return errInvalidQoS
	}

	setDuration(&m.KeepAlive, DefaultKeepAlive)
	setDuration(&m.RetryInterval, DefaultRetryInterval)

	if m.InboundQueue <= 0 {
		m.InboundQueue = DefaultInboundQueue
	}

	setString(&m.Topics.Data, DefaultDataTopic)
	setString(&m.Topics.Control, DefaultControlTopic)
	setString(&m.Topics.Thresholds, DefaultThresholdsTopic)

	if m.Topics.Data == m.Topics.Control ||
		m.Topics.Data == m.Topics.Thresholds ||
		m.Topics.Control == m.Topics.Thresholds {
		return errDuplicateTopic
	}

	return nil
}

// validateThresholds fills in factory thresholds for unset fields and checks ranges.
// Zero is treated as unset except for VOC, where zero is a legal threshold only
// when set explicitly alongside the others.
func validateThresholds(t *ThresholdsConfig) error {
	if *t == (ThresholdsConfig{}) {
		*t = ThresholdsConfig{
			Temperature: 30.0,
			Humidity:    60.0,
			CO2:         1500,
			VOC:         1000,
			CO2Critical: 2500,
		}

		return nil
	}

	if t.Humidity < 0 || t.Humidity > 100 {
		return fmt.Errorf("invalid humidity threshold %v: must be within 0..100", t.Humidity)
	}

	if t.CO2 <= 0 || t.CO2Critical <= 0 {
		return fmt.Errorf("invalid co2 thresholds %d/%d: must be positive", t.CO2, t.CO2Critical)
	}

	if t.VOC < 0 {
		return fmt.Errorf("invalid voc threshold %d: must not be negative", t.VOC)
	}

	return nil
}

// validateSensor checks the sensor section.
func validateSensor(s *SensorConfig) error {
	setString(&s.Kind, SensorKindSimulated)

	switch s.Kind {
	case SensorKindSimulated:
		return nil
	case SensorKindSerial:
		if s.Device == "" {
			return errSerialDeviceRequired
		}

		if s.Baud == 0 {
			s.Baud = DefaultBaud
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownSensorKind, s.Kind)
	}
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

func setString(s *string, def string) {
	if *s == "" {
		*s = def
	}
}
