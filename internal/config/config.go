package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (WAITGATE_MAX_ATTEMPTS, ...).
const EnvPrefix = "WAITGATE"

// Target kinds
const (
	KindHTTP     = "http"
	KindTCP      = "tcp"
	KindPostgres = "postgres"
	KindMemory   = "memory"
)

// Launch modes
const (
	ModeSpawn = "spawn"
	ModeExec  = "exec"
)

// Config is the complete runtime configuration of the gate.
type Config struct {
	Targets     []Target      `mapstructure:"targets"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Interval    time.Duration `mapstructure:"interval"`
	Command     []string      `mapstructure:"command"`

	Launch  LaunchConfig  `mapstructure:"launch"`
	Log     LogConfig     `mapstructure:"log"`
	Status  StatusConfig  `mapstructure:"status"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// Target is one dependency the gate waits for.
// Which fields apply depends on Kind.
type Target struct {
	Kind           string `mapstructure:"kind"`
	URL            string `mapstructure:"url"`     // http
	Method         string `mapstructure:"method"`  // http
	Address        string `mapstructure:"address"` // tcp
	DSN            string `mapstructure:"dsn"`     // postgres
	MinAvailableMB uint64 `mapstructure:"min_available_mb"`
}

type LaunchConfig struct {
	Mode    string `mapstructure:"mode"`
	WorkDir string `mapstructure:"workdir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
	File   string `mapstructure:"file"`
}

type StatusConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the status server
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // empty disables textfile export
}

type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"` // OTLP/HTTP host:port; empty disables
	ServiceName string `mapstructure:"service_name"`
}

// Defaults reproduce the behavior of the stock entrypoint:
// probe http://db:81 every 2s, 5s per probe, give up after 30 attempts,
// then start the API jar.
func Defaults() Config {
	return Config{
		Targets: []Target{
			{Kind: KindHTTP, URL: "http://db:81", Method: "GET"},
		},
		Timeout:     5 * time.Second,
		MaxAttempts: 30,
		Interval:    2 * time.Second,
		Command:     []string{"java", "-jar", "target/ecommerce-api-0.0.1-SNAPSHOT.jar"},
		Launch:      LaunchConfig{Mode: ModeSpawn},
		Log:         LogConfig{Level: "info", Format: "text"},
		Tracing:     TracingConfig{ServiceName: "waitgate"},
	}
}

// SetDefaults registers every key with viper so that AutomaticEnv
// can override it during Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Defaults()

	targets := make([]map[string]interface{}, 0, len(d.Targets))
	for _, t := range d.Targets {
		targets = append(targets, map[string]interface{}{
			"kind":   t.Kind,
			"url":    t.URL,
			"method": t.Method,
		})
	}

	v.SetDefault("targets", targets)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_attempts", d.MaxAttempts)
	v.SetDefault("interval", d.Interval)
	v.SetDefault("command", d.Command)
	v.SetDefault("launch.mode", d.Launch.Mode)
	v.SetDefault("launch.workdir", d.Launch.WorkDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("status.addr", d.Status.Addr)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// NewViper builds the layered configuration source: defaults, then the
// config file, then WAITGATE_* environment variables. Flags are bound by
// the caller on top.
//
// With an explicit path the file must exist. Without one, waitgate.yaml is
// searched in /etc/waitgate and the working directory, and a missing file
// is not an error.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyListEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("waitgate")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/waitgate")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return v, nil
}

// Decode unmarshals, normalizes and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	Normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Load is NewViper followed by Decode.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}
