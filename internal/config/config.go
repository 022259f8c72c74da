// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides YAML-based configuration loading for tickrpc hosts.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"code.hybscloud.com/tickrpc"
	"code.hybscloud.com/tickrpc/chain"
)

// Config is the root host configuration.
type Config struct {
	// Endpoint is the RPC URL.
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// Dialect: json, cbor or proto.
	Dialect string `mapstructure:"dialect" json:"dialect" jsonschema:"enum=json,enum=cbor,enum=proto"`
	// Transport: http or ws (native), fetch (browser).
	Transport string `mapstructure:"transport" json:"transport" jsonschema:"enum=http,enum=ws,enum=fetch"`
	// Timeout bounds each attempt, as a Go duration string.
	Timeout string `mapstructure:"timeout" json:"timeout"`
	// TickRate is the host frame rate in Hz.
	TickRate int `mapstructure:"tick_rate" json:"tick_rate"`

	Retry RetryConfig `mapstructure:"retry" json:"retry"`
	Log   LogConfig   `mapstructure:"log" json:"log"`

	timeout time.Duration
	policy  tickrpc.RetryPolicy
}

// RetryConfig defines the retry policy of every ticket.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" json:"max_attempts"`
	// Backoff: fixed or exponential.
	Backoff string `mapstructure:"backoff" json:"backoff" jsonschema:"enum=fixed,enum=exponential"`
	Base    string `mapstructure:"base" json:"base"`
	Max     string `mapstructure:"max" json:"max"`
	// Schedule overrides Backoff/Base/Max when non-empty.
	Schedule   []string `mapstructure:"schedule" json:"schedule,omitempty"`
	JitterPct  int      `mapstructure:"jitter_pct" json:"jitter_pct"`
	RetryCodes []int    `mapstructure:"retry_codes" json:"retry_codes,omitempty"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=warning,enum=error"`
	// Format: console or json
	Format string `mapstructure:"format" json:"format" jsonschema:"enum=console,enum=json"`
	// Outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs" json:"outputs"`

	Rotation    RotationConfig `mapstructure:"rotation" json:"rotation"`
	Development bool           `mapstructure:"development" json:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable" json:"enable"`
	Filename   string `mapstructure:"filename" json:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Endpoint:  chain.DevnetURL,
		Dialect:   "json",
		Transport: "http",
		Timeout:   "10s",
		TickRate:  60,
		Retry: RetryConfig{
			MaxAttempts: 3,
			Backoff:     "exponential",
			Base:        "250ms",
			Max:         "5s",
			JitterPct:   10,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/tickrpc.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix TICKRPC and `.`/`-` are replaced with `_`.
// Example: TICKRPC_RETRY_MAX_ATTEMPTS=5
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TICKRPC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults so env-only configs work
	v.SetDefault("endpoint", cfg.Endpoint)
	v.SetDefault("dialect", cfg.Dialect)
	v.SetDefault("transport", cfg.Transport)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("tick_rate", cfg.TickRate)
	v.SetDefault("retry.max_attempts", cfg.Retry.MaxAttempts)
	v.SetDefault("retry.backoff", cfg.Retry.Backoff)
	v.SetDefault("retry.base", cfg.Retry.Base)
	v.SetDefault("retry.max", cfg.Retry.Max)
	v.SetDefault("retry.schedule", cfg.Retry.Schedule)
	v.SetDefault("retry.jitter_pct", cfg.Retry.JitterPct)
	v.SetDefault("retry.retry_codes", cfg.Retry.RetryCodes)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		if envPath := os.Getenv("TICKRPC_CONFIG"); envPath != "" {
			path = envPath
		}
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tickrpc")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tickrpc"))
		}
	}

	// continue with defaults/env when no file is found
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	c.Dialect = strings.ToLower(strings.TrimSpace(c.Dialect))
	if _, err := tickrpc.NewCodecRegistry().Lookup(c.Dialect); err != nil {
		return fmt.Errorf("invalid dialect: %w", err)
	}
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case "", "http", "https", "ws", "wss", "websocket", "fetch":
	default:
		return fmt.Errorf("invalid transport: %q", c.Transport)
	}
	d, err := parseDuration("timeout", c.Timeout)
	if err != nil {
		return err
	}
	c.timeout = d
	if c.TickRate <= 0 {
		c.TickRate = 60
	}

	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}

	c.policy, err = c.Retry.policy()
	return err
}

func (r RetryConfig) policy() (tickrpc.RetryPolicy, error) {
	p := tickrpc.RetryPolicy{
		MaxAttempts: r.MaxAttempts,
		JitterPct:   r.JitterPct,
		RetryCodes:  r.RetryCodes,
	}
	if p.MaxAttempts < 1 {
		return p, fmt.Errorf("invalid retry.max_attempts: %d", r.MaxAttempts)
	}
	if p.JitterPct < 0 || p.JitterPct > 100 {
		return p, fmt.Errorf("invalid retry.jitter_pct: %d", r.JitterPct)
	}
	switch strings.ToLower(strings.TrimSpace(r.Backoff)) {
	case "", "exponential":
		p.Kind = tickrpc.BackoffExponential
	case "fixed":
		p.Kind = tickrpc.BackoffFixed
	default:
		return p, fmt.Errorf("invalid retry.backoff: %q", r.Backoff)
	}
	var err error
	if p.Base, err = parseDuration("retry.base", r.Base); err != nil {
		return p, err
	}
	if p.Max, err = parseDuration("retry.max", r.Max); err != nil {
		return p, err
	}
	for i, s := range r.Schedule {
		d, err := parseDuration(fmt.Sprintf("retry.schedule[%d]", i), s)
		if err != nil {
			return p, err
		}
		p.Schedule = append(p.Schedule, d)
	}
	return p, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", key, s)
	}
	return d, nil
}

// RetryPolicy returns the validated retry policy.
func (c *Config) RetryPolicy() tickrpc.RetryPolicy { return c.policy }

// TickInterval returns the frame duration for TickRate.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(max(c.TickRate, 1))
}

// Options converts the configuration to client options.
func (c *Config) Options(logger *zap.Logger) tickrpc.Options {
	return tickrpc.Options{
		Endpoint:      c.Endpoint,
		Dialect:       c.Dialect,
		TransportKind: c.Transport,
		Timeout:       c.timeout,
		Retry:         c.policy,
		Logger:        logger,
	}
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
