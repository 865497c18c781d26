package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/waitgate/internal/launch"
	"github.com/psantana5/waitgate/internal/probe"
)

type probeOutput struct {
	Ready   bool          `json:"ready"`
	Results []probeStatus `json:"results"`
}

type probeStatus struct {
	Target     string  `json:"target"`
	OK         bool    `json:"ok"`
	StatusCode int     `json:"status_code,omitempty"`
	LatencyMS  float64 `json:"latency_ms"`
	Error      string  `json:"error,omitempty"`
}

func newProbeCommand(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe every target once and report",
		Long: `Probe runs a single round against every configured target, without
retrying and without starting anything. It exits 0 when every target is
reachable and 1 otherwise, which makes it usable as a container HEALTHCHECK.

Example:
  waitgate probe
  waitgate probe --target http://db:81 --target tcp://cache:6379 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			probers, err := probe.Build(cfg.Targets, cfg.Timeout)
			if err != nil {
				return err
			}

			out := summarize(probe.Each(cmd.Context(), probers))

			if jsonOutput {
				err = writeProbeJSON(cmd.OutOrStdout(), out)
			} else {
				err = writeProbeTable(cmd.OutOrStdout(), out)
			}
			if err != nil {
				return err
			}

			if !out.Ready {
				return &launch.ExitError{Code: 1}
			}
			return nil
		},
	}
	addGateFlags(cmd.Flags(), opts)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output results as JSON")
	return cmd
}

func summarize(results []probe.Result) probeOutput {
	out := probeOutput{Ready: true, Results: make([]probeStatus, 0, len(results))}
	for _, res := range results {
		if !res.OK {
			out.Ready = false
		}
		out.Results = append(out.Results, probeStatus{
			Target:     res.Target,
			OK:         res.OK,
			StatusCode: res.StatusCode,
			LatencyMS:  float64(res.Latency) / float64(time.Millisecond),
			Error:      res.Error(),
		})
	}
	return out
}

func writeProbeJSON(w io.Writer, out probeOutput) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func writeProbeTable(w io.Writer, out probeOutput) error {
	table := tablewriter.NewWriter(w)
	table.Header("Target", "Status", "Code", "Latency", "Error")

	for _, s := range out.Results {
		state := "OK"
		if !s.OK {
			state = "FAIL"
		}
		code := "-"
		if s.StatusCode != 0 {
			code = fmt.Sprintf("%d", s.StatusCode)
		}
		errText := s.Error
		if errText == "" {
			errText = "-"
		}
		table.Append(s.Target, state, code, fmt.Sprintf("%.1fms", s.LatencyMS), errText)
	}

	table.Render()
	return nil
}
