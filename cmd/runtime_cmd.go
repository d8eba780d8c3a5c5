package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ghmcp/ghmcp/internal/runtime"
	"github.com/spf13/cobra"
)

var runtimeCmd = &cobra.Command{
	Use:   "runtime",
	Short: "Find the container runtime ghmcp will use",
}

var runtimeDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Resolve the container runtime",
	Long: `Detect probes docker, podman and nerdctl in that order and reports the
first one that answers '--version'. With --prefer (or the global --runtime)
only that runtime is probed and there is no fallback.`,
	RunE: runRuntimeDetect,
}

var runtimeLocateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Look for runtimes outside PATH",
	Long: `Locate inspects well-known install locations (Homebrew, OrbStack,
Docker Desktop, Rancher Desktop) and asks each login shell where it finds the
runtime. A runtime that a login shell sees but ghmcp does not usually means
the MCP client was started with a different PATH.`,
	RunE: runRuntimeLocate,
}

func init() {
	runtimeDetectCmd.Flags().String("prefer", "", "probe only this runtime")
	runtimeLocateCmd.Flags().Bool("json", false, "print the report as JSON")

	runtimeCmd.AddCommand(runtimeDetectCmd)
	runtimeCmd.AddCommand(runtimeLocateCmd)
	rootCmd.AddCommand(runtimeCmd)
}

func runRuntimeDetect(cmd *cobra.Command, args []string) error {
	prefer, _ := cmd.Flags().GetString("prefer")
	if prefer == "" {
		prefer = Cfg.Runtime
	}

	info, err := runtime.Resolve(cmd.Context(), runner, prefer, Cfg.Timeouts.Probe)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Runtime: %s\n", info.Name)
	fmt.Fprintf(out, "Path:    %s\n", info.Path)
	fmt.Fprintf(out, "Version: %s\n", info.Version)
	return nil
}

type locateReport struct {
	Locations   []runtime.Location             `json:"locations"`
	LoginShells map[string][]runtime.ShellPath `json:"login_shells"`
}

func runRuntimeLocate(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	report := locateReport{
		Locations:   runtime.Locate(ctx, runner, Cfg.Timeouts.Probe),
		LoginShells: make(map[string][]runtime.ShellPath),
	}
	for _, name := range runtime.Candidates {
		report.LoginShells[name] = runtime.LoginShellPaths(ctx, runner, name, Cfg.Timeouts.Probe)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling report: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, "Known install locations:")
	found := 0
	for _, loc := range report.Locations {
		switch {
		case !loc.Exists:
			continue
		case !loc.Executable:
			fmt.Fprintf(out, "  [WARN] %s exists but is not executable\n", loc.Path)
		case loc.Error != "":
			fmt.Fprintf(out, "  [FAIL] %s: %s\n", loc.Path, loc.Error)
		default:
			fmt.Fprintf(out, "  [OK]   %s: %s\n", loc.Path, loc.Version)
		}
		found++
	}
	if found == 0 {
		fmt.Fprintln(out, "  none found")
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Login shells:")
	for _, name := range runtime.Candidates {
		for _, sp := range report.LoginShells[name] {
			if sp.Path != "" {
				fmt.Fprintf(out, "  %-8s %-5s -> %s\n", name, sp.Shell, sp.Path)
			} else {
				fmt.Fprintf(out, "  %-8s %-5s -> %s\n", name, sp.Shell, sp.Error)
			}
		}
	}
	return nil
}
