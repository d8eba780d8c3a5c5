package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/ghmcp/ghmcp/internal/doctor"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ErrChecksFailed is returned when at least one diagnostic failed.
var ErrChecksFailed = errors.New("diagnostics failed")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run the full GitHub MCP diagnostic checklist",
	Long: `Doctor runs every diagnostic check in order and reports PASS or FAIL
for each: Go toolchain, container runtime presence and liveness, linked
modules, the GitHub token, container execution, the server image, the MCP
handshake and a read-only tool call.

All checks always run. The exit status is 0 only when every check passes.`,
	RunE: runDoctor,
}

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Check the token and the MCP handshake only",
	Long: `Quick is the fast path: it verifies the token is set and that the
server starts and answers the MCP handshake. Run 'ghmcp doctor' for the
full checklist when it fails.`,
	RunE: runQuick,
}

func init() {
	for _, c := range []*cobra.Command{doctorCmd, quickCmd} {
		c.Flags().String("format", "text", "output format (text, json or yaml)")
		c.Flags().Bool("no-color", false, "disable coloured output")
		c.Flags().String("metrics-file", "", "also write results in Prometheus text format to this file")
		rootCmd.AddCommand(c)
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	return runChecks(cmd, doctor.DefaultRegistry(), "GitHub MCP Integration Diagnostics")
}

func runQuick(cmd *cobra.Command, args []string) error {
	return runChecks(cmd, doctor.QuickRegistry(), "Quick GitHub MCP Connection Test")
}

func runChecks(cmd *cobra.Command, reg *doctor.Registry, title string) error {
	format, _ := cmd.Flags().GetString("format")
	noColor, _ := cmd.Flags().GetBool("no-color")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	switch format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown format %q: must be text, json or yaml", format)
	}

	ctx := cmd.Context()
	env := doctor.NewEnv(ctx, Cfg, Creds, runner)
	report := reg.Run(ctx, env)

	out := cmd.OutOrStdout()
	switch format {
	case "json", "yaml":
		var s string
		var err error
		if format == "json" {
			s, err = report.JSON()
		} else {
			s, err = report.YAML()
		}
		if err != nil {
			return fmt.Errorf("marshalling report: %w", err)
		}
		fmt.Fprintln(out, s)
	default:
		opts := doctor.TextOptions{Title: title, Color: !noColor && useColor(out)}
		if err := doctor.WriteText(out, report, opts); err != nil {
			return err
		}
	}

	if metricsFile != "" {
		if err := doctor.WriteMetrics(metricsFile, report); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if !report.Passed() {
		return fmt.Errorf("%w: %s", ErrChecksFailed, report.Summary())
	}
	return nil
}

// useColor reports whether w is a terminal that accepts colour.
func useColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || color.NoColor {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
