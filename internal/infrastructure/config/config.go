package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration read from config.yaml.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Devices   DevicesConfig   `yaml:"devices"`
}

// SiteConfig identifies the installation. Timezone is an IANA name; device
// timer settings are read as local times in it.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"` // seconds

	// HistoryRetentionDays is how long state history rows are kept.
	// Zero keeps them forever.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig locates the broker. ClientID gets a per-process suffix
// so two cores never steal each other's session.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig bounds the reconnect backoff, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains the optional HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`

	// CORSOrigins lists the browser origins allowed to call the API.
	// Empty allows any origin.
	CORSOrigins  []string `yaml:"cors_origins"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
}

// APITimeoutConfig holds HTTP server timeouts in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

func (t APITimeoutConfig) ReadTimeout() time.Duration  { return seconds(t.Read) }
func (t APITimeoutConfig) WriteTimeout() time.Duration { return seconds(t.Write) }
func (t APITimeoutConfig) IdleTimeout() time.Duration  { return seconds(t.Idle) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// WebSocketConfig tunes the /ws feed. Intervals are in seconds.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig enables the optional device status and wind pulse series.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"` // json or text
	Output string            `yaml:"output"` // stdout, stderr or file
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig configures the rotating log file used when
// Logging.Output is "file". Sizes are in megabytes, ages in days.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Hardware driver names.
const (
	HardwareDriverPeriph = "periph"
	HardwareDriverMemory = "memory"
)

// HardwareConfig selects the GPIO backend.
type HardwareConfig struct {
	// Driver is "periph" on a Raspberry Pi or "memory" for simulation.
	Driver string `yaml:"driver"`

	// Required makes a failed GPIO initialisation fatal at startup.
	// When false the core keeps running without devices.
	Required bool `yaml:"required"`
}

// DevicesConfig points at the device configuration file.
type DevicesConfig struct {
	File string `yaml:"file"`
}

// Load builds the configuration from defaults, then the YAML file at path,
// then ALMUE_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "almue",
			Name:     "almue",
			Timezone: "Local",
		},
		Database: DatabaseConfig{
			Path:        "./data/almue.db",
			WALMode:     true,
			BusyTimeout: 5,

			HistoryRetentionDays: 90,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "almue-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: false,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			MaxBodyBytes: 64 << 10,
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "/var/log/almue/almue.log",
				MaxSize:    10,
				MaxBackups: 30,
				MaxAge:     30,
			},
		},
		Hardware: HardwareConfig{
			Driver: HardwareDriverPeriph,
		},
		Devices: DevicesConfig{
			File: "configs/devices.yaml",
		},
	}
}

// envOverrides maps ALMUE_* variables onto config fields. Secrets belong
// here rather than in the file.
var envOverrides = []struct {
	name  string
	apply func(cfg *Config, v string) error
}{
	{"ALMUE_SITE_TIMEZONE", func(c *Config, v string) error { c.Site.Timezone = v; return nil }},
	{"ALMUE_DATABASE_PATH", func(c *Config, v string) error { c.Database.Path = v; return nil }},
	{"ALMUE_MQTT_HOST", func(c *Config, v string) error { c.MQTT.Broker.Host = v; return nil }},
	{"ALMUE_MQTT_PORT", func(c *Config, v string) error { return setInt(&c.MQTT.Broker.Port, v) }},
	{"ALMUE_MQTT_USERNAME", func(c *Config, v string) error { c.MQTT.Auth.Username = v; return nil }},
	{"ALMUE_MQTT_PASSWORD", func(c *Config, v string) error { c.MQTT.Auth.Password = v; return nil }},
	{"ALMUE_API_PORT", func(c *Config, v string) error { return setInt(&c.API.Port, v) }},
	{"ALMUE_INFLUXDB_TOKEN", func(c *Config, v string) error { c.InfluxDB.Token = v; return nil }},
	{"ALMUE_LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"ALMUE_HARDWARE_DRIVER", func(c *Config, v string) error { c.Hardware.Driver = v; return nil }},
	{"ALMUE_DEVICES_FILE", func(c *Config, v string) error { c.Devices.File = v; return nil }},
}

// applyEnvOverrides applies every set, non-empty override. lookup is
// os.LookupEnv outside tests.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		v, ok := lookup(o.name)
		if !ok || v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%q is not an integer", v)
	}
	*dst = n
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a known time zone", c.Site.Timezone))
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.HistoryRetentionDays < 0 {
		errs = append(errs, "database.history_retention_days must not be negative")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.MaxBodyBytes < 0 {
		errs = append(errs, "api.max_body_bytes must not be negative")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "", "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is file")
		}
	default:
		errs = append(errs, "logging.output must be stdout, stderr, or file")
	}

	switch c.Hardware.Driver {
	case HardwareDriverPeriph, HardwareDriverMemory:
	default:
		errs = append(errs, "hardware.driver must be periph or memory")
	}

	if c.Devices.File == "" {
		errs = append(errs, "devices.file is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location resolves the site time zone used to convert local timer
// settings into UTC trigger times. "Local" and "" select the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Site.Timezone {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Site.Timezone)
	}
}
