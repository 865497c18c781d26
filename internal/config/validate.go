package config

import (
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/psantana5/waitgate/internal/logging"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration; run Normalize first.
func Validate(cfg *Config) error {
	if len(cfg.Targets) == 0 {
		return fmt.Errorf("targets: at least one target is required")
	}

	for i, t := range cfg.Targets {
		if err := validateTarget(t); err != nil {
			return fmt.Errorf("targets[%d]: %w", i, err)
		}
	}

	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout: must be > 0, got %s", cfg.Timeout)
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts: must be >= 1, got %d", cfg.MaxAttempts)
	}
	if cfg.Interval < 0 {
		return fmt.Errorf("interval: must be >= 0, got %s", cfg.Interval)
	}

	if len(cfg.Command) == 0 {
		return fmt.Errorf("command: launch command is required")
	}

	switch cfg.Launch.Mode {
	case ModeSpawn, ModeExec:
	default:
		return fmt.Errorf("launch.mode: must be %q or %q, got %q", ModeSpawn, ModeExec, cfg.Launch.Mode)
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: must be \"text\" or \"json\", got %q", cfg.Log.Format)
	}

	if cfg.Status.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Status.Addr); err != nil {
			return fmt.Errorf("status.addr: %w", err)
		}
	}

	return nil
}

func validateTarget(t Target) error {
	switch t.Kind {
	case KindHTTP:
		u, err := url.Parse(t.URL)
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", t.URL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url %q: scheme must be http or https", t.URL)
		}
		if u.Host == "" {
			return fmt.Errorf("url %q: host is required", t.URL)
		}
		switch t.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			return fmt.Errorf("method %q: only GET, HEAD and OPTIONS are allowed", t.Method)
		}

	case KindTCP:
		host, port, err := net.SplitHostPort(t.Address)
		if err != nil {
			return fmt.Errorf("address %q: %w", t.Address, err)
		}
		if host == "" || port == "" {
			return fmt.Errorf("address %q: host and port are required", t.Address)
		}

	case KindPostgres:
		if t.DSN == "" {
			return fmt.Errorf("dsn is required for postgres targets")
		}

	case KindMemory:
		if t.MinAvailableMB == 0 {
			return fmt.Errorf("min_available_mb must be > 0 for memory targets")
		}

	default:
		return fmt.Errorf("unknown kind %q", t.Kind)
	}

	return nil
}
