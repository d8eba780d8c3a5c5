package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ghmcp/ghmcp/internal/config"
	"github.com/ghmcp/ghmcp/internal/execx"
	"github.com/ghmcp/ghmcp/internal/ghserver"
	"github.com/ghmcp/ghmcp/internal/logging"
	"github.com/ghmcp/ghmcp/internal/runtime"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Global flag values.
var (
	cfgFile     string
	verbose     bool
	logFormat   string
	runtimeName string
)

// Cfg holds the loaded configuration, available to all subcommands.
var Cfg *config.Config

// Creds is the credential snapshot taken once at startup.
var Creds config.Credentials

// runner executes runtime probes; tests substitute a fake.
var runner execx.Runner = execx.OS{}

// skipValidation marks commands that must run with an invalid config.
const skipValidation = "skip-validation"

// SetVersionInfo is called from main to inject build-time version info.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	buildDate = d
	rootCmd.Version = v
	ghserver.ClientVersion = v
}

var rootCmd = &cobra.Command{
	Use:   "ghmcp",
	Short: "Wire up and diagnose the containerised GitHub MCP server",
	Long: `ghmcp finds a container runtime, builds the exact command line that
starts the GitHub MCP server over stdio, and checks every step between an
MCP client and a working tool call.

Start with 'ghmcp doctor' when a client cannot reach the server.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set up logging first.
		logging.Setup(logFormat, "info", verbose)

		// Load configuration. config init creates the --config file, so it
		// starts from defaults.
		path := cfgFile
		if cmd == configInitCmd {
			path = ""
		}
		var err error
		Cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if runtimeName != "" {
			Cfg.Runtime = runtimeName
		}

		format := logFormat
		if !cmd.Flags().Changed("log-format") {
			format = Cfg.Logging.Format
		}
		logging.Setup(format, Cfg.Logging.Level, verbose)

		if cmd.Annotations[skipValidation] == "" {
			if err := Cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration (run 'ghmcp config validate'): %w", err)
			}
		}

		Creds = config.ReadCredentials(Cfg.Credentials, os.Getenv)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/ghmcp/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format (text or json)")
	rootCmd.PersistentFlags().StringVar(&runtimeName, "runtime", "", "container runtime to use (docker, podman or nerdctl); default auto-detect")
}

// Execute runs the root command. Cancelling ctx stops any running check or
// server.
func Execute(ctx context.Context) error {
	rootCmd.SetVersionTemplate(fmt.Sprintf("ghmcp version {{.Version}} (commit: %s, built: %s)\n", commit, buildDate))
	return rootCmd.ExecuteContext(ctx)
}

// resolveRuntime resolves the configured runtime, or auto-detects one.
func resolveRuntime(ctx context.Context) (*runtime.RuntimeInfo, error) {
	return runtime.Resolve(ctx, runner, Cfg.Runtime, Cfg.Timeouts.Probe)
}

// serverCommand resolves the runtime and builds the server launch command.
func serverCommand(ctx context.Context) (*runtime.RuntimeInfo, ghserver.Command, error) {
	rt, err := resolveRuntime(ctx)
	if err != nil {
		return nil, ghserver.Command{}, err
	}
	c, err := ghserver.NewCommand(rt.Path, Cfg, Creds)
	if err != nil {
		return nil, ghserver.Command{}, err
	}
	return rt, c, nil
}
