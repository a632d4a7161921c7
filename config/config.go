// Package config loads the dispatchd configuration from a YAML file, an
// optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/viralclips/dispatch"
	audithook "github.com/viralclips/dispatch/audit_hook"
	"github.com/viralclips/dispatch/download"
	"github.com/viralclips/dispatch/logging"
	"github.com/viralclips/dispatch/queue"
)

const (
	// MinPort is the minimum valid port number.
	MinPort = 1
	// MaxPort is the maximum valid port number.
	MaxPort = 65535
)

// Config is the complete dispatchd configuration.
type Config struct {
	HTTP     HTTPConfig      `yaml:"http"`
	Redis    RedisConfig     `yaml:"redis"`
	Dispatch DispatchConfig  `yaml:"dispatch"`
	Download download.Config `yaml:"download"`
	Queues   []QueueConfig   `yaml:"queues"`
	Logging  logging.Config  `yaml:"logging"`
	Audit    AuditConfig     `yaml:"audit"`
}

// AuditConfig controls the audit trail written to the log.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// Actions limits the trail to these actions. Empty means all.
	Actions []string `yaml:"actions"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RedisConfig holds the job store connection.
type RedisConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	DB        int    `yaml:"db"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// DispatchConfig holds worker pool and record settings. JobTTL is handed
// to the store, the rest to the dispatcher.
type DispatchConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	QueueCapacity   int           `yaml:"queue_capacity"`
	JobTTL          time.Duration `yaml:"job_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Core converts d to the dispatcher's configuration.
func (d DispatchConfig) Core() dispatch.Config {
	return dispatch.Config{
		Concurrency:     d.Concurrency,
		QueueCapacity:   d.QueueCapacity,
		ShutdownTimeout: d.ShutdownTimeout,
	}
}

// QueueConfig holds admission limits for one job type.
type QueueConfig struct {
	JobType        string  `yaml:"job_type"`
	MaxOutstanding int     `yaml:"max_outstanding"`
	RateLimit      float64 `yaml:"rate_limit"`
	RateBurst      int     `yaml:"rate_burst"`
}

// QueueConfigs converts the configured limits for the engine.
func (c *Config) QueueConfigs() []queue.Config {
	out := make([]queue.Config, 0, len(c.Queues))
	for _, q := range c.Queues {
		out = append(out, queue.Config{
			JobType:        q.JobType,
			MaxOutstanding: q.MaxOutstanding,
			RateLimit:      q.RateLimit,
			RateBurst:      q.RateBurst,
		})
	}
	return out
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	core := dispatch.DefaultConfig()
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Dispatch: DispatchConfig{
			Concurrency:     core.Concurrency,
			QueueCapacity:   core.QueueCapacity,
			JobTTL:          dispatch.DefaultJobTTL,
			ShutdownTimeout: core.ShutdownTimeout,
		},
		Download: download.DefaultConfig(),
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// .env file (if present) and environment overrides. An empty path skips
// the YAML step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// Existing environment variables win over .env entries.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("HTTP_ADDR", &c.HTTP.Addr)
	str("REDIS_HOST", &c.Redis.Host)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("DOWNLOAD_DIR", &c.Download.OutputDir)
	str("YTDLP_BINARY", &c.Download.Binary)

	return errors.Join(
		num("REDIS_PORT", &c.Redis.Port),
		num("REDIS_DB", &c.Redis.DB),
		num("RESOLUTION", &c.Download.Resolution),
		num("CONCURRENCY", &c.Dispatch.Concurrency),
		num("QUEUE_CAPACITY", &c.Dispatch.QueueCapacity),
	)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http addr is required"))
	}
	if c.Redis.Host == "" {
		errs = append(errs, errors.New("redis host is required"))
	}
	if c.Redis.Port < MinPort || c.Redis.Port > MaxPort {
		errs = append(errs, fmt.Errorf("invalid redis port: %d (must be between %d and %d)", c.Redis.Port, MinPort, MaxPort))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("invalid redis db: %d", c.Redis.DB))
	}
	if c.Dispatch.Concurrency < 1 {
		errs = append(errs, errors.New("dispatch concurrency must be greater than 0"))
	}
	if c.Dispatch.QueueCapacity < 1 {
		errs = append(errs, errors.New("dispatch queue_capacity must be greater than 0"))
	}
	if c.Dispatch.JobTTL <= 0 {
		errs = append(errs, errors.New("dispatch job_ttl must be greater than 0"))
	}
	if c.Download.Resolution < 1 {
		errs = append(errs, errors.New("download resolution must be greater than 0"))
	}
	for _, a := range c.Audit.Actions {
		if !audithook.IsAction(a) {
			errs = append(errs, fmt.Errorf("unknown audit action %q", a))
		}
	}
	seen := make(map[string]bool, len(c.Queues))
	for _, q := range c.Queues {
		switch {
		case q.JobType == "":
			errs = append(errs, errors.New("queue job_type is required"))
		case seen[q.JobType]:
			errs = append(errs, fmt.Errorf("duplicate queue config for %q", q.JobType))
		case q.MaxOutstanding < 0 || q.RateLimit < 0 || q.RateBurst < 0:
			errs = append(errs, fmt.Errorf("queue %q: limits must not be negative", q.JobType))
		}
		seen[q.JobType] = true
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
