package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PasswordEnv overrides rcon.password when set.
const PasswordEnv = "PAVADMIN_RCON_PASSWORD"

// Config is the root configuration.
type Config struct {
	RCon    RCon    `yaml:"rcon"`
	API     API     `yaml:"api"`
	Metrics Metrics `yaml:"metrics"`
	Events  Events  `yaml:"events"`
}

// RCon holds the game server connection settings.
type RCon struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	Password          string        `yaml:"password"`
	CommandTimeout    time.Duration `yaml:"command_timeout"`
	QuietPeriod       time.Duration `yaml:"quiet_period"`
	DialTimeout       time.Duration `yaml:"dial_timeout"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	ReconnectMax      time.Duration `yaml:"reconnect_max"`
}

// API holds HTTP front end settings.
type API struct {
	Listen string `yaml:"listen"`
}

// Metrics holds metrics exposition settings.
type Metrics struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// Events sizes the in-memory lifecycle event log.
type Events struct {
	Capacity int `yaml:"capacity"`
}

// Load reads and validates config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config, applies environment overrides and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if pw, ok := os.LookupEnv(PasswordEnv); ok {
		cfg.RCon.Password = pw
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks config, filling in defaults, and fails fast on invalid values.
func Validate(c *Config) error {
	if c.RCon.Host == "" {
		c.RCon.Host = "127.0.0.1"
	}
	if c.RCon.Port == 0 {
		c.RCon.Port = 15777
	}
	if c.RCon.Port < 0 || c.RCon.Port > 65535 {
		return fmt.Errorf("config: rcon.port %d out of range", c.RCon.Port)
	}
	if c.RCon.Password == "" {
		return fmt.Errorf("config: rcon.password required (or set %s)", PasswordEnv)
	}
	if c.RCon.CommandTimeout < 0 || c.RCon.QuietPeriod < 0 || c.RCon.ReconnectInterval < 0 {
		return fmt.Errorf("config: rcon durations must not be negative")
	}
	if c.RCon.CommandTimeout == 0 {
		c.RCon.CommandTimeout = 750 * time.Millisecond
	}
	if c.RCon.QuietPeriod == 0 {
		c.RCon.QuietPeriod = 50 * time.Millisecond
	}
	if c.RCon.QuietPeriod >= c.RCon.CommandTimeout {
		return fmt.Errorf("config: rcon.quiet_period (%s) must be shorter than rcon.command_timeout (%s)",
			c.RCon.QuietPeriod, c.RCon.CommandTimeout)
	}
	if c.RCon.DialTimeout == 0 {
		c.RCon.DialTimeout = 5 * time.Second
	}
	if c.RCon.ReconnectInterval == 0 {
		c.RCon.ReconnectInterval = 3 * time.Second
	}
	if c.RCon.ReconnectMax < c.RCon.ReconnectInterval {
		c.RCon.ReconnectMax = 30 * time.Second
	}
	if c.API.Listen == "" {
		c.API.Listen = "127.0.0.1:8080"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Events.Capacity <= 0 {
		c.Events.Capacity = 256
	}
	return nil
}
