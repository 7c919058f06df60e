package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dokzlo13/lightstate/internal/light"
)

// Config represents the application configuration
type Config struct {
	Log             LogConfig      `yaml:"log"`
	Database        DatabaseConfig `yaml:"database"`
	MQTT            MQTTConfig     `yaml:"mqtt"`
	Hue             HueConfig      `yaml:"hue"`
	Metrics         MetricsConfig  `yaml:"metrics"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	Lights          []LightConfig  `yaml:"lights"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// MQTTConfig contains MQTT broker settings for the bridge
type MQTTConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Broker         string   `yaml:"broker"`
	ClientID       string   `yaml:"client_id"` // Prefix, a random suffix is appended
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	TopicPrefix    string   `yaml:"topic_prefix"`
	QoS            byte     `yaml:"qos"`
	PublishRPS     float64  `yaml:"publish_rps"`     // State publish rate limit
	ConnectTimeout Duration `yaml:"connect_timeout"` // Timeout for the initial broker connection
	PollInterval   Duration `yaml:"poll_interval"`   // How often to pick up state changed by other processes

	Discovery       bool   `yaml:"discovery"`        // Publish Home Assistant discovery documents
	DiscoveryPrefix string `yaml:"discovery_prefix"` // Home Assistant discovery topic prefix
}

// HueConfig contains Hue bridge settings. Lights with a hue_id mirror their
// state to the bridge when a bridge is configured.
type HueConfig struct {
	Bridge       string  `yaml:"bridge"`
	Token        string  `yaml:"token"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

// Enabled reports whether a bridge is configured.
func (c *HueConfig) Enabled() bool {
	return c.Bridge != "" && c.Token != ""
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Textfile string `yaml:"textfile"` // Optional path for one-shot commands to dump metrics to
}

// LedgerConfig contains command history settings
type LedgerConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// LightConfig defines one light and its model parameters
type LightConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Capabilities string `yaml:"capabilities"`
	RGBDataType  string `yaml:"rgb_data_type"`
	LEDMode      string `yaml:"led_operating_mode"` // Optional override of the derived mode
	HueID        int    `yaml:"hue_id"`             // Hue bridge light id, 0 = not mirrored

	light.Options `yaml:",inline"`
}

// Model builds a fresh light model from the definition.
func (c *LightConfig) Model() (*light.Model, error) {
	var caps light.Capabilities
	if err := caps.UnmarshalText([]byte(c.Capabilities)); err != nil {
		return nil, fmt.Errorf("capabilities: %w", err)
	}
	var rgb light.RGBDataType
	if err := rgb.UnmarshalText([]byte(c.RGBDataType)); err != nil {
		return nil, fmt.Errorf("rgb_data_type: %w", err)
	}

	m, err := light.New(caps, rgb, c.Options)
	if err != nil {
		return nil, err
	}

	if c.LEDMode != "" {
		var mode light.LEDMode
		if err := mode.UnmarshalText([]byte(c.LEDMode)); err != nil {
			return nil, fmt.Errorf("led_operating_mode: %w", err)
		}
		if err := m.SetLEDMode(mode); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes, applies defaults and validates
// every light definition.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./lightctl.sqlite"
	}

	// MQTT defaults
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "lightctl"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "lights"
	}
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")
	if cfg.MQTT.QoS > 2 {
		return nil, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
	}
	if cfg.MQTT.PublishRPS == 0 {
		cfg.MQTT.PublishRPS = 10.0
	}
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = Duration(10 * time.Second)
	}
	if cfg.MQTT.DiscoveryPrefix == "" {
		cfg.MQTT.DiscoveryPrefix = "homeassistant"
	}
	if cfg.MQTT.PollInterval == 0 {
		cfg.MQTT.PollInterval = Duration(2 * time.Second)
	}

	// Hue defaults
	if cfg.Hue.RateLimitRPS == 0 {
		cfg.Hue.RateLimitRPS = 10.0 // 10 requests per second
	}

	// Metrics defaults
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Host == "" {
		cfg.Metrics.Host = "0.0.0.0"
	}

	// Ledger defaults
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	if err := cfg.validateLights(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validateLights() error {
	seen := make(map[string]bool, len(c.Lights))
	for i := range c.Lights {
		l := &c.Lights[i]
		if l.ID == "" {
			return fmt.Errorf("lights[%d]: id is required", i)
		}
		if strings.ContainsAny(l.ID, "/+#") {
			return fmt.Errorf("light %q: id must not contain MQTT topic characters", l.ID)
		}
		if seen[l.ID] {
			return fmt.Errorf("light %q: duplicate id", l.ID)
		}
		seen[l.ID] = true

		if l.Name == "" {
			l.Name = l.ID
		}
		if l.RGBDataType == "" {
			l.RGBDataType = light.RGBDefault.String()
		}
		if _, err := l.Model(); err != nil {
			return fmt.Errorf("light %q: %w", l.ID, err)
		}
	}
	return nil
}

// Light returns the definition with the given id.
func (c *Config) Light(id string) (*LightConfig, bool) {
	for i := range c.Lights {
		if c.Lights[i].ID == id {
			return &c.Lights[i], true
		}
	}
	return nil, false
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
