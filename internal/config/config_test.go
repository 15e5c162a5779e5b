package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing broker.
	require.ErrorIs(t, Validate(new(Config)), errBrokerRequired)

	// Nil config.
	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	// Unsupported scheme.
	cfg := &Config{MQTT: MQTTConfig{Broker: "http://broker:1883"}}
	require.ErrorIs(t, Validate(cfg), errUnsupportedScheme)

	// Serial sensor without a device.
	cfg = &Config{
		MQTT:   MQTTConfig{Broker: "tcp://127.0.0.1:1883"},
		Sensor: SensorConfig{Kind: SensorKindSerial},
	}
	require.ErrorIs(t, Validate(cfg), errSerialDeviceRequired)

	// Unknown sensor kind.
	cfg = &Config{
		MQTT:   MQTTConfig{Broker: "tcp://127.0.0.1:1883"},
		Sensor: SensorConfig{Kind: "i2c"},
	}
	require.ErrorIs(t, Validate(cfg), errUnknownSensorKind)

	// Shared topic.
	cfg = &Config{MQTT: MQTTConfig{
		Broker: "tcp://127.0.0.1:1883",
		Topics: TopicsConfig{Data: "x", Control: "x", Thresholds: "y"},
	}}
	require.ErrorIs(t, Validate(cfg), errDuplicateTopic)

	// Bad control address.
	cfg = &Config{
		MQTT:           MQTTConfig{Broker: "tcp://127.0.0.1:1883"},
		ControlAddress: "bad:address",
	}
	require.Error(t, Validate(cfg))

	// Humidity out of range.
	cfg = &Config{
		MQTT:  MQTTConfig{Broker: "tcp://127.0.0.1:1883"},
		Alarm: AlarmConfig{Thresholds: ThresholdsConfig{Humidity: 120, CO2: 1, CO2Critical: 1}},
	}
	require.Error(t, Validate(cfg))
}

// TestValidateDefaults checks the defaults filled in for a minimal file.
func TestValidateDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{MQTT: MQTTConfig{Broker: "tcp://192.168.178.56:1883"}}
	require.NoError(t, Validate(cfg))

	require.Equal(t, DefaultDeviceName, cfg.Device.Name)
	require.Contains(t, cfg.MQTT.ClientID, DefaultDeviceName+"-")
	require.Equal(t, DefaultDataTopic, cfg.MQTT.Topics.Data)
	require.Equal(t, DefaultControlTopic, cfg.MQTT.Topics.Control)
	require.Equal(t, DefaultThresholdsTopic, cfg.MQTT.Topics.Thresholds)
	require.Equal(t, DefaultRetryInterval, cfg.MQTT.RetryInterval)
	require.Equal(t, DefaultRetryInterval, cfg.Network.RetryInterval)
	require.Equal(t, DefaultCooldown, cfg.Alarm.Cooldown)
	require.Equal(t, DefaultStrikeThreshold, cfg.Alarm.StrikeThreshold)
	require.InDelta(t, 30.0, cfg.Alarm.Thresholds.Temperature, 1e-9)
	require.Equal(t, 2500, cfg.Alarm.Thresholds.CO2Critical)
	require.Equal(t, SensorKindSimulated, cfg.Sensor.Kind)
	require.Equal(t, DefaultTickInterval, cfg.Intervals.Tick)
	require.Equal(t, DefaultBacklightTimeout, cfg.Intervals.Backlight)
	require.Equal(t, DefaultControlAddress, cfg.ControlAddress)
	require.Equal(t, DefaultLogLevel, cfg.LogLevel)

	// A second validation keeps the generated client ID.
	id := cfg.MQTT.ClientID
	require.NoError(t, Validate(cfg))
	require.Equal(t, id, cfg.MQTT.ClientID)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		MQTT: MQTTConfig{
			Broker:   "tcp://127.0.0.1:1883",
			ClientID: "kitchen",
			QoS:      1,
		},
		Sensor: SensorConfig{Kind: SensorKindSerial, Device: "/dev/ttyUSB0"},
		Alarm:  AlarmConfig{Cooldown: time.Minute},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)
	require.Equal(t, uint(DefaultBaud), loaded.Sensor.Baud)
	require.Equal(t, time.Minute, loaded.Alarm.Cooldown)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoadMissingFile ensures a missing file is reported.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestLoadParsesDurations ensures durations are read from their string form.
func TestLoadParsesDurations(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := []byte(`mqtt:
  broker: tcp://10.0.0.5:1883
intervals:
  tick: 500ms
network:
  retry_interval: 30s
`)
	require.NoError(t, os.WriteFile(path, contents, DefaultFilePermissions))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 500*time.Millisecond, cfg.Intervals.Tick)
	require.Equal(t, 30*time.Second, cfg.Network.RetryInterval)
}
