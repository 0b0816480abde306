package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleJSON = `{
  "mqtt": {
    "name": "office-pc",
    "broker": "192.168.1.200",
    "port": 1884,
    "keepalive": 30,
    "ping_frequency": 10,
    "topics": {"base": "home/office/pc/"}
  },
  "pins": {"power_switch": 17, "power_led": 27, "heartbeat": 22},
  "actuator": {"force_off_timeout_seconds": 8}
}`

func TestLoadJSON(t *testing.T) {
	cfg, err := Load(writeFile(t, "pcmonitor.json", sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "office-pc", cfg.MQTT.Name)
	assert.Equal(t, "tcp://192.168.1.200:1884", cfg.MQTT.BrokerURL())
	assert.Equal(t, 30*time.Second, cfg.MQTT.KeepaliveInterval())
	assert.Equal(t, 10*time.Second, cfg.MQTT.PingInterval())
	assert.Equal(t, "OUT_OF_SYNC", cfg.MQTT.WillPayload)
	assert.Equal(t, "home/office/pc", cfg.MQTT.Topics.Base)
	assert.Equal(t, "home/office/pc/stat", cfg.MQTT.Topics.Topic(Status))

	assert.Equal(t, "gpiochip0", cfg.Pins.Chip)
	assert.Equal(t, 17, cfg.Pins.PowerSwitch)
	pin, ok := cfg.Pins.HeartbeatPin()
	assert.True(t, ok)
	assert.Equal(t, 22, pin)

	assert.Equal(t, 500*time.Millisecond, cfg.Actuator.PressDwell())
	assert.Equal(t, 8*time.Second, cfg.Actuator.ForceOffTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.Actuator.ForceOffPoll())

	assert.Equal(t, 75*time.Millisecond, cfg.Session.Tick())
	assert.Equal(t, time.Second, cfg.Session.ErrorBackoff())
	assert.Zero(t, cfg.Session.ReconnectAfterFailures)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "pcmonitor.yaml", `
mqtt:
  broker: ssl://broker.example:8883
  user: pc
  password: secret
pins:
  power_switch: 5
  power_led: 4
  led_active_low: true
session:
  reconnect_after_failures: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ssl://broker.example:8883", cfg.MQTT.BrokerURL())
	assert.Equal(t, "pc", cfg.MQTT.User)
	assert.True(t, cfg.Pins.LEDActiveLow)
	assert.Equal(t, 5, cfg.Session.ReconnectAfterFailures)
	assert.True(t, strings.HasPrefix(cfg.MQTT.Name, "pcmonitor-"), "generated name %q", cfg.MQTT.Name)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PCMON_MQTT__BROKER", "10.0.0.9")
	t.Setenv("PCMON_MQTT__PING_FREQUENCY", "5")
	t.Setenv("PCMON_LOGGING__LEVEL", "debug")

	cfg, err := Load(writeFile(t, "pcmonitor.json", sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "tcp://10.0.0.9:1884", cfg.MQTT.BrokerURL())
	assert.Equal(t, 5*time.Second, cfg.MQTT.PingInterval())
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(writeFile(t, "pcmonitor.toml", "x = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config format")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := Config{
			MQTT: MQTTConfig{Broker: "localhost"},
			Pins: PinsConfig{PowerSwitch: 17, PowerLED: 27},
		}
		c.SetDefaults()
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no broker", func(c *Config) { c.MQTT.Broker = "" }, "broker is required"},
		{"bad port", func(c *Config) { c.MQTT.Port = 70000 }, "out of range"},
		{"missing pin", func(c *Config) { c.Pins.PowerLED = 0 }, "required"},
		{"shared pin", func(c *Config) { c.Pins.PowerLED = 17 }, "share pin"},
		{"heartbeat clash", func(c *Config) { c.Pins.Heartbeat = intPtr(27) }, "already in use"},
		{"negative heartbeat", func(c *Config) { c.Pins.Heartbeat = intPtr(-1) }, "negative"},
		{"poll exceeds timeout", func(c *Config) { c.Actuator.ForceOffPollSeconds = 20 }, "exceeds"},
		{"negative reconnect", func(c *Config) { c.Session.ReconnectAfterFailures = -1 }, "negative"},
		{"command outside cmd", func(c *Config) { c.MQTT.Topics.PCCommand = "pc" }, "must start with"},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestHeartbeatPinZeroIsALine(t *testing.T) {
	cfg, err := Load(writeFile(t, "pcmonitor.json",
		`{"mqtt": {"broker": "localhost"}, "pins": {"power_switch": 17, "power_led": 27, "heartbeat": 0}}`))
	require.NoError(t, err)
	pin, ok := cfg.Pins.HeartbeatPin()
	assert.True(t, ok)
	assert.Zero(t, pin)

	cfg, err = Load(writeFile(t, "pcmonitor.json",
		`{"mqtt": {"broker": "localhost"}, "pins": {"power_switch": 17, "power_led": 27}}`))
	require.NoError(t, err)
	_, ok = cfg.Pins.HeartbeatPin()
	assert.False(t, ok)
}
