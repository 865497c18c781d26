package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/psantana5/waitgate/internal/config"
	"github.com/psantana5/waitgate/internal/logging"
)

// flagKeys maps command-line flags onto config keys.
// Flags only win when set explicitly; otherwise file, env and defaults apply.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"log-file":         "log.file",
	"timeout":          "timeout",
	"max-attempts":     "max_attempts",
	"interval":         "interval",
	"mode":             "launch.mode",
	"workdir":          "launch.workdir",
	"status-addr":      "status.addr",
	"metrics-textfile": "metrics.textfile",
	"otlp-endpoint":    "tracing.endpoint",
}

type rootOptions struct {
	cfgFile string
	targets []string
}

// NewRootCommand builds the waitgate command tree.
// The root command itself behaves like "run".
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "waitgate [flags] [-- command args...]",
		Short: "Wait for dependencies to become reachable, then start the application",
		Long: `waitgate probes one or more dependencies (HTTP endpoints, TCP ports,
PostgreSQL, available memory) until they all respond, then hands off to the
application command. If the dependencies never become ready within the
attempt budget, it exits with status 1 and the application is never started.

Example:
  waitgate
  waitgate --target http://db:81 --max-attempts 30 --interval 2s -- java -jar app.jar
  waitgate probe --json`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGate(cmd, opts, args)
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is waitgate.yaml in /etc/waitgate or the working directory)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "log format: text or json")
	root.PersistentFlags().String("log-file", "", "also write logs to this file")

	addGateFlags(root.Flags(), opts)

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newProbeCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newVersionCommand())

	return root
}

// Execute runs the command tree.
func Execute() error {
	return NewRootCommand().Execute()
}

// addGateFlags registers the flags shared by the root, run and probe commands.
func addGateFlags(fs *pflag.FlagSet, opts *rootOptions) {
	fs.StringArrayVar(&opts.targets, "target", nil, "dependency URL to probe (repeatable; http://, https://, tcp://, postgres://)")
	fs.Duration("timeout", 0, "per-probe timeout (default 5s)")
	fs.Int("max-attempts", 0, "maximum number of probes before giving up (default 30)")
	fs.Duration("interval", 0, "pause between failed probes (default 2s)")
	fs.String("mode", "", "hand-off mode: spawn or exec (default spawn)")
	fs.String("workdir", "", "working directory for the application")
	fs.String("status-addr", "", "serve /healthz, /readyz and /metrics on this address")
	fs.String("metrics-textfile", "", "write Prometheus metrics to this file")
	fs.String("otlp-endpoint", "", "OTLP/HTTP collector host:port for traces")
}

// loadConfig layers defaults, config file, environment and explicitly set
// flags, then decodes and validates the result.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	v, err := config.NewViper(opts.cfgFile)
	if err != nil {
		return nil, err
	}

	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	if len(opts.targets) > 0 {
		v.Set("targets", config.TargetsFromURLs(opts.targets))
	}

	return config.Decode(v)
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	jsonFormat := cfg.Format == "json"

	if cfg.File != "" {
		return logging.NewFileLogger(cfg.File, level, jsonFormat)
	}
	return logging.NewLogger(level, jsonFormat), nil
}
