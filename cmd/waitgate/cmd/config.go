package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psantana5/waitgate/internal/config"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
		Long:  `Commands for printing the effective configuration and a commented example file.`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Show merges defaults, the config file, WAITGATE_* environment variables
and flags, validates the result and prints it as YAML. Database passwords
are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			data, err := config.Render(config.Redact(cfg))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	addGateFlags(show.Flags(), opts)

	example := &cobra.Command{
		Use:   "example",
		Short: "Print a commented example config file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.ExampleConfig)
		},
	}

	cmd.AddCommand(show)
	cmd.AddCommand(example)
	return cmd
}
