package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// fileView mirrors the on-disk YAML layout. Durations are kept as
// strings so that Render output can be fed back through Load.
type fileView struct {
	Targets     []targetView `yaml:"targets"`
	Timeout     string       `yaml:"timeout"`
	MaxAttempts int          `yaml:"max_attempts"`
	Interval    string       `yaml:"interval"`
	Command     []string     `yaml:"command,flow"`
	Launch      struct {
		Mode    string `yaml:"mode"`
		WorkDir string `yaml:"workdir,omitempty"`
	} `yaml:"launch"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		File   string `yaml:"file,omitempty"`
	} `yaml:"log"`
	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`
	Metrics struct {
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
	Tracing struct {
		Endpoint    string `yaml:"endpoint"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"tracing"`
}

type targetView struct {
	Kind           string `yaml:"kind"`
	URL            string `yaml:"url,omitempty"`
	Method         string `yaml:"method,omitempty"`
	Address        string `yaml:"address,omitempty"`
	DSN            string `yaml:"dsn,omitempty"`
	MinAvailableMB uint64 `yaml:"min_available_mb,omitempty"`
}

// Render returns cfg as YAML in the config file format.
// Postgres DSNs are rendered as-is; callers printing to a terminal
// should Redact first.
func Render(cfg *Config) ([]byte, error) {
	var v fileView

	for _, t := range cfg.Targets {
		v.Targets = append(v.Targets, targetView(t))
	}
	v.Timeout = cfg.Timeout.String()
	v.MaxAttempts = cfg.MaxAttempts
	v.Interval = cfg.Interval.String()
	v.Command = cfg.Command
	v.Launch.Mode = cfg.Launch.Mode
	v.Launch.WorkDir = cfg.Launch.WorkDir
	v.Log.Level = cfg.Log.Level
	v.Log.Format = cfg.Log.Format
	v.Log.File = cfg.Log.File
	v.Status.Addr = cfg.Status.Addr
	v.Metrics.Textfile = cfg.Metrics.Textfile
	v.Tracing.Endpoint = cfg.Tracing.Endpoint
	v.Tracing.ServiceName = cfg.Tracing.ServiceName

	data, err := yaml.Marshal(&v)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return data, nil
}

// Redact returns a copy of cfg with credentials in target DSNs masked.
func Redact(cfg *Config) *Config {
	out := *cfg
	out.Targets = make([]Target, len(cfg.Targets))
	for i, t := range cfg.Targets {
		if t.DSN != "" {
			t.DSN = RedactDSN(t.DSN)
		}
		out.Targets[i] = t
	}
	return &out
}

// ExampleConfig is printed by `waitgate config example`.
const ExampleConfig = `# waitgate configuration
# Search order: --config, /etc/waitgate/waitgate.yaml, ./waitgate.yaml
# Every key can be overridden with WAITGATE_<KEY>, e.g. WAITGATE_MAX_ATTEMPTS=60
# WAITGATE_COMMAND is split on whitespace: WAITGATE_COMMAND="java -jar app.jar"
# WAITGATE_TARGETS takes comma-separated URLs: WAITGATE_TARGETS=http://db:81,tcp://cache:6379

# Dependencies to wait for. All must be reachable in the same round.
targets:
  - kind: http              # success = any status below 400, redirects not followed
    url: http://db:81
    method: GET             # GET | HEAD | OPTIONS
  # - kind: tcp
  #   address: cache:6379
  # - kind: postgres
  #   dsn: postgres://app:secret@db:5432/app?sslmode=disable
  # - kind: memory
  #   min_available_mb: 512

timeout: 5s                 # per probe
max_attempts: 30            # probe rounds before giving up (exit 1)
interval: 2s                # fixed sleep between rounds

# Started once every target is reachable.
command: [java, -jar, target/ecommerce-api-0.0.1-SNAPSHOT.jar]

launch:
  mode: spawn               # spawn: run as child, forward signals, propagate exit code
                            # exec: replace the waitgate process
  workdir: ""

log:
  level: info               # debug | info | warn | error
  format: text              # text | json
  file: ""                  # also append to this file

status:
  addr: ""                  # e.g. :9090 serves /healthz, /readyz, /metrics while waiting

metrics:
  textfile: ""              # e.g. /var/lib/node_exporter/textfile/waitgate.prom

tracing:
  endpoint: ""              # OTLP/HTTP collector, e.g. otel-collector:4318
  service_name: waitgate
`
