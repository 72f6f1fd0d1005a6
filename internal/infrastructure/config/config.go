package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for VRxLink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	VRx      VRxConfig      `yaml:"vrx"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// VRxConfig contains receiver-control settings.
//
// Only one controller may drive VRx receivers on a given network at a time.
// Setting Enabled to false keeps the configuration in place while a timer
// is withdrawn from receiver control.
type VRxConfig struct {
	// Enabled must be true for the controller to start.
	Enabled bool `yaml:"enabled"`

	// Host is the MQTT broker address used for receiver messages.
	// When set it overrides mqtt.broker.host.
	Host string `yaml:"host"`

	// MaxSeat is the highest addressable seat index. Seats are 0..MaxSeat.
	MaxSeat int `yaml:"max_seat"`

	// FrequencyCountdown is the pilot warning delay, in seconds, between
	// announcing a frequency change and applying it.
	FrequencyCountdown int `yaml:"frequency_countdown"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// DatabaseConfig contains SQLite settings for the device event journal.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for receiver telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: VRXLINK_SECTION_KEY
// For example: VRXLINK_MQTT_HOST, VRXLINK_VRX_ENABLED
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		VRx: VRxConfig{
			Enabled:            true,
			Host:               "localhost",
			MaxSeat:            7,
			FrequencyCountdown: 10,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "vrxlink-controller",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/vrxlink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: VRXLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VRXLINK_VRX_HOST"); v != "" {
		cfg.VRx.Host = v
	}
	if v := os.Getenv("VRXLINK_VRX_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.VRx.Enabled = b
		}
	}

	if v := os.Getenv("VRXLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("VRXLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("VRXLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("VRXLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("VRXLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Receiver-control settings never fail validation: out-of-range values
// fall back to defaults and are reported through Warnings so user-facing
// setup mistakes are visible without aborting startup.
//
// Returns:
//   - error: The first hard configuration error found, or nil
func (c *Config) Validate() error {
	if c.MQTT.Broker.Port <= 0 || c.MQTT.Broker.Port > 65535 {
		return fmt.Errorf("mqtt.broker.port %d out of range", c.MQTT.Broker.Port)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos %d out of range (must be 0-2)", c.MQTT.QoS)
	}
	if c.Database.Enabled && c.Database.Path == "" {
		return fmt.Errorf("database.path required when database.enabled is true")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		return fmt.Errorf("influxdb.url required when influxdb.enabled is true")
	}
	return nil
}

// Warnings normalises the receiver-control section and returns a message
// for every key that was missing or unreasonable and replaced by its
// default. These are logged at warn level by the caller, never fatal.
func (c *Config) Warnings() []string {
	var warnings []string
	def := defaultConfig()

	if c.VRx.Host == "" {
		c.VRx.Host = def.VRx.Host
		warnings = append(warnings, fmt.Sprintf("vrx.host not set, using %q", def.VRx.Host))
	}
	if c.VRx.MaxSeat < 0 {
		c.VRx.MaxSeat = def.VRx.MaxSeat
		warnings = append(warnings, fmt.Sprintf("vrx.max_seat negative, using %d", def.VRx.MaxSeat))
	}
	if c.VRx.FrequencyCountdown <= 0 {
		c.VRx.FrequencyCountdown = def.VRx.FrequencyCountdown
		warnings = append(warnings, fmt.Sprintf("vrx.frequency_countdown not positive, using %d", def.VRx.FrequencyCountdown))
	}

	return warnings
}
