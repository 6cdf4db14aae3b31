// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server locates the simulation backend.
type Server struct {
	URL        string `yaml:"url"`
	Namespace  string `yaml:"namespace"`
	SocketPath string `yaml:"socket_path"`
}

// Dashboard tunes the event reducer.
type Dashboard struct {
	ActionLogCapacity int           `yaml:"action_log_capacity"`
	MarkerCapacity    int           `yaml:"marker_capacity"`
	ReconcileEvery    int           `yaml:"reconcile_every"`
	PulseDuration     time.Duration `yaml:"pulse_duration"`
	FlashDuration     time.Duration `yaml:"flash_duration"`
	ResyncOnReconnect bool          `yaml:"resync_on_reconnect"`
}

// Connection controls reconnect and fetch behaviour.
type Connection struct {
	Reconnect      bool          `yaml:"reconnect"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
}

// Logging selects log output.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// SimServer configures the development backend.
type SimServer struct {
	Addr         string        `yaml:"addr"`
	Data         string        `yaml:"data"`
	Records      int           `yaml:"records"`
	Seed         int64         `yaml:"seed"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// Config is the root configuration.
type Config struct {
	Server     Server     `yaml:"server"`
	Dashboard  Dashboard  `yaml:"dashboard"`
	Connection Connection `yaml:"connection"`
	Logging    Logging    `yaml:"logging"`
	SimServer  SimServer  `yaml:"simserver"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			URL:        "http://localhost:5000",
			Namespace:  "/ws/demo",
			SocketPath: "/socket.io/",
		},
		Dashboard: Dashboard{
			ActionLogCapacity: 50,
			MarkerCapacity:    100,
			ReconcileEvery:    10,
			PulseDuration:     900 * time.Millisecond,
			FlashDuration:     1200 * time.Millisecond,
			ResyncOnReconnect: true,
		},
		Connection: Connection{
			Reconnect:      true,
			BackoffInitial: 500 * time.Millisecond,
			BackoffMax:     10 * time.Second,
			FetchTimeout:   5 * time.Second,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		SimServer: SimServer{
			Addr:         ":5000",
			Records:      300,
			Seed:         1,
			PingInterval: 25 * time.Second,
		},
	}
}

// Load reads configPath over the defaults after validating it against the
// CUE schema. An empty configPath returns the defaults; an empty schemaPath
// uses the embedded schema. Environment overrides are applied last.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	cfg := Default()
	if configPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", configPath, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PILGRIMWATCH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PILGRIMWATCH_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("PILGRIMWATCH_NAMESPACE"); v != "" {
		c.Server.Namespace = v
	}
	if v := os.Getenv("PILGRIMWATCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PILGRIMWATCH_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks rules the schema cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server.url: missing host")
	}
	if !strings.HasPrefix(c.Server.Namespace, "/") {
		return fmt.Errorf("server.namespace must start with '/', got %q", c.Server.Namespace)
	}
	d := c.Dashboard
	switch {
	case d.ActionLogCapacity <= 0:
		return fmt.Errorf("dashboard.action_log_capacity must be positive")
	case d.MarkerCapacity <= 0:
		return fmt.Errorf("dashboard.marker_capacity must be positive")
	case d.ReconcileEvery <= 0:
		return fmt.Errorf("dashboard.reconcile_every must be positive")
	case d.PulseDuration <= 0 || d.FlashDuration <= 0:
		return fmt.Errorf("dashboard pulse and flash durations must be positive")
	}
	cn := c.Connection
	if cn.BackoffInitial <= 0 || cn.BackoffMax < cn.BackoffInitial {
		return fmt.Errorf("connection.backoff_initial must be positive and not exceed backoff_max")
	}
	if cn.FetchTimeout <= 0 {
		return fmt.Errorf("connection.fetch_timeout must be positive")
	}
	return nil
}
