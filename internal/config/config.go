// Package config loads pcmonitor settings from a JSON or YAML file with
// environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates path segments: PCMON_MQTT__BROKER sets mqtt.broker.
const EnvPrefix = "PCMON_"

// Config is the root configuration.
type Config struct {
	MQTT     MQTTConfig     `json:"mqtt"`
	Pins     PinsConfig     `json:"pins"`
	Actuator ActuatorConfig `json:"actuator"`
	Session  SessionConfig  `json:"session"`
	Logging  LoggingConfig  `json:"logging"`
	HTTP     HTTPConfig     `json:"http"`
}

// MQTTConfig holds broker connection settings and the topic table.
type MQTTConfig struct {
	Name          string `json:"name"`
	Broker        string `json:"broker"`
	Port          int    `json:"port"`
	User          string `json:"user"`
	Password      string `json:"password"`
	Keepalive     int    `json:"keepalive"`
	PingFrequency int    `json:"ping_frequency"`
	WillPayload   string `json:"will_payload"`
	Topics        Topics `json:"topics"`
}

// PinsConfig maps logical lines to BCM offsets on a GPIO chip.
type PinsConfig struct {
	Chip            string `json:"chip"`
	PowerSwitch     int    `json:"power_switch"`
	PowerLED        int    `json:"power_led"`
	Heartbeat       *int   `json:"heartbeat"` // nil disables the heartbeat indicator
	SwitchActiveLow bool   `json:"switch_active_low"`
	LEDActiveLow    bool   `json:"led_active_low"`
	LEDPullUp       bool   `json:"led_pull_up"`
	DebounceMs      int    `json:"debounce_ms"`
}

// ActuatorConfig holds the timings of physical switch sequences.
type ActuatorConfig struct {
	PressDwellSeconds      float64 `json:"press_dwell_seconds"`
	ForceOffTimeoutSeconds float64 `json:"force_off_timeout_seconds"`
	ForceOffPollSeconds    float64 `json:"force_off_poll_seconds"`
}

// SessionConfig holds scheduling loop timings.
type SessionConfig struct {
	TickMs                 int `json:"tick_ms"`
	ErrorBackoffMs         int `json:"error_backoff_ms"`
	ReconnectAfterFailures int `json:"reconnect_after_failures"` // 0 keeps log-and-continue
}

// LoggingConfig selects the minimum log level.
type LoggingConfig struct {
	Level string `json:"level"`
}

// HTTPConfig configures the status server. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// Load reads path (.json, .yaml or .yml), applies PCMON_ environment
// overrides, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	c.MQTT.SetDefaults()
	c.Pins.SetDefaults()
	c.Actuator.SetDefaults()
	c.Session.SetDefaults()
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if err := c.Pins.Validate(); err != nil {
		return fmt.Errorf("pins: %w", err)
	}
	if err := c.Actuator.Validate(); err != nil {
		return fmt.Errorf("actuator: %w", err)
	}
	if c.Session.ReconnectAfterFailures < 0 {
		return fmt.Errorf("session: reconnect_after_failures must not be negative")
	}
	return nil
}

// SetDefaults applies broker defaults. An empty client name gets a random suffix
// so two controllers never collide on the broker.
func (c *MQTTConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "pcmonitor-" + uuid.NewString()[:8]
	}
	if c.Port == 0 {
		c.Port = 1883
	}
	if c.Keepalive == 0 {
		c.Keepalive = 60
	}
	if c.PingFrequency == 0 {
		c.PingFrequency = 30
	}
	if c.WillPayload == "" {
		c.WillPayload = "OUT_OF_SYNC"
	}
	c.Topics.SetDefaults()
}

// Validate checks mandatory broker fields.
func (c MQTTConfig) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Keepalive < 0 || c.PingFrequency < 0 {
		return fmt.Errorf("keepalive and ping_frequency must not be negative")
	}
	return c.Topics.Validate()
}

// BrokerURL returns the paho broker URL. A broker already carrying a scheme is
// used as is.
func (c MQTTConfig) BrokerURL() string {
	if strings.Contains(c.Broker, "://") {
		return c.Broker
	}
	return fmt.Sprintf("tcp://%s:%d", c.Broker, c.Port)
}

// KeepaliveInterval is the transport keepalive.
func (c MQTTConfig) KeepaliveInterval() time.Duration {
	return time.Duration(c.Keepalive) * time.Second
}

// PingInterval is how often the session loop pings the broker.
func (c MQTTConfig) PingInterval() time.Duration {
	return time.Duration(c.PingFrequency) * time.Second
}

func (c *PinsConfig) SetDefaults() {
	if c.Chip == "" {
		c.Chip = "gpiochip0"
	}
}

func (c PinsConfig) Validate() error {
	if c.PowerSwitch <= 0 || c.PowerLED <= 0 {
		return fmt.Errorf("power_switch and power_led are required")
	}
	if c.PowerSwitch == c.PowerLED {
		return fmt.Errorf("power_switch and power_led share pin %d", c.PowerSwitch)
	}
	if pin, ok := c.HeartbeatPin(); ok {
		if pin < 0 {
			return fmt.Errorf("heartbeat pin must not be negative")
		}
		if pin == c.PowerSwitch || pin == c.PowerLED {
			return fmt.Errorf("heartbeat pin %d already in use", pin)
		}
	}
	return nil
}

// HeartbeatPin returns the heartbeat line and whether one is configured.
// Line 0 is a valid heartbeat line.
func (c PinsConfig) HeartbeatPin() (int, bool) {
	if c.Heartbeat == nil {
		return 0, false
	}
	return *c.Heartbeat, true
}

// Debounce is the kernel debounce period of the LED input.
func (c PinsConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c *ActuatorConfig) SetDefaults() {
	if c.PressDwellSeconds == 0 {
		c.PressDwellSeconds = 0.5
	}
	if c.ForceOffTimeoutSeconds == 0 {
		c.ForceOffTimeoutSeconds = 10
	}
	if c.ForceOffPollSeconds == 0 {
		c.ForceOffPollSeconds = 0.25
	}
}

func (c ActuatorConfig) Validate() error {
	if c.PressDwellSeconds < 0 || c.ForceOffTimeoutSeconds < 0 || c.ForceOffPollSeconds < 0 {
		return fmt.Errorf("timings must not be negative")
	}
	if c.ForceOffPollSeconds > c.ForceOffTimeoutSeconds {
		return fmt.Errorf("force_off_poll_seconds exceeds force_off_timeout_seconds")
	}
	return nil
}

func (c ActuatorConfig) PressDwell() time.Duration { return seconds(c.PressDwellSeconds) }

func (c ActuatorConfig) ForceOffTimeout() time.Duration { return seconds(c.ForceOffTimeoutSeconds) }

func (c ActuatorConfig) ForceOffPoll() time.Duration { return seconds(c.ForceOffPollSeconds) }

func (c *SessionConfig) SetDefaults() {
	if c.TickMs == 0 {
		c.TickMs = 75
	}
	if c.ErrorBackoffMs == 0 {
		c.ErrorBackoffMs = 1000
	}
}

func (c SessionConfig) Tick() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

func (c SessionConfig) ErrorBackoff() time.Duration {
	return time.Duration(c.ErrorBackoffMs) * time.Millisecond
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
