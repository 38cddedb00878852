package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/livestate/internal/errors"
)

// Default file names, searched in this order by Load.
const (
	JSONFileName = "livestate.json"
	YAMLFileName = "livestate.yaml"
)

// Default values.
const (
	DefaultAddr         = ":7070"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultNamespace    = "livestate"
	DefaultMetricsPath  = "/metrics"
	DefaultTracerName   = "github.com/vango-dev/livestate"
	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisChannel = "livestate:events"
	DefaultSendBuffer   = 64
	DefaultWriteTimeout = "10s"
)

// Config represents a livestate configuration file.
type Config struct {
	// Log configures the process logger.
	Log LogConfig `json:"log" yaml:"log"`

	// Server configures the HTTP and websocket listener.
	Server ServerConfig `json:"server" yaml:"server"`

	// Metrics configures the Prometheus observer and endpoint.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Tracing configures OpenTelemetry spans for tracker passes.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Redis configures the optional pub/sub event feed.
	Redis RedisConfig `json:"redis" yaml:"redis"`

	// State is the initial document served by the hub.
	State map[string]any `json:"state,omitempty" yaml:"state,omitempty"`

	// configPath is the path the config was loaded from.
	configPath string
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level" yaml:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// ServerConfig configures the hub listener.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr" yaml:"addr"`

	// SendBuffer is the per-session outbound queue length.
	SendBuffer int `json:"sendBuffer" yaml:"sendBuffer"`

	// WriteTimeout bounds each websocket write, as a Go duration string.
	WriteTimeout string `json:"writeTimeout" yaml:"writeTimeout"`

	// AllowedOrigins lists origins allowed to open websocket sessions. Empty
	// allows same-origin requests only; "*" allows any origin.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Path      string `json:"path" yaml:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	TracerName string `json:"tracerName" yaml:"tracerName"`
}

// RedisConfig configures the Redis event feed.
type RedisConfig struct {
	// Enabled turns the feed on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db" yaml:"db"`

	// Channel is the pub/sub channel carrying JSON events.
	Channel string `json:"channel" yaml:"channel"`
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Server: ServerConfig{
			Addr:         DefaultAddr,
			SendBuffer:   DefaultSendBuffer,
			WriteTimeout: DefaultWriteTimeout,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
			Path:      DefaultMetricsPath,
		},
		Tracing: TracingConfig{
			TracerName: DefaultTracerName,
		},
		Redis: RedisConfig{
			Addr:    DefaultRedisAddr,
			Channel: DefaultRedisChannel,
		},
	}
}

// Load reads configuration from dir. It looks for livestate.json, then
// livestate.yaml. A directory with neither yields the defaults.
func Load(dir string) (*Config, error) {
	for _, name := range []string{JSONFileName, YAMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return New(), nil
}

// LoadFile reads configuration from path. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("E301").
			WithPath(path).
			Wrap(err)
	}

	cfg := New()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(cfg)
		if err == io.EOF {
			err = nil
		}
	default:
		return nil, errors.New("E302").
			WithPath(path).
			WithDetail(fmt.Sprintf("Unknown extension %q.", ext))
	}
	if err != nil {
		return nil, errors.New("E301").
			WithPath(path).
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			Wrap(err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.SendBuffer == 0 {
		c.Server.SendBuffer = DefaultSendBuffer
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = DefaultTracerName
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = DefaultRedisChannel
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Server.SendBuffer < 0 {
		return invalid("server.sendBuffer must not be negative")
	}
	if _, err := time.ParseDuration(c.Server.WriteTimeout); err != nil {
		return invalid("server.writeTimeout %q is not a duration", c.Server.WriteTimeout)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path must start with /, got %q", c.Metrics.Path)
	}
	if c.Redis.DB < 0 {
		return invalid("redis.db must not be negative")
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, invalid("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return level, nil
}

// WriteTimeout parses Server.WriteTimeout. Invalid values fall back to the default.
func (c *Config) WriteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.WriteTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultWriteTimeout)
	}
	return d
}

func invalid(format string, args ...any) error {
	return errors.New("E301").WithDetail(fmt.Sprintf(format, args...))
}
