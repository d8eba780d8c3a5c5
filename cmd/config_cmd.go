package cmd

import (
	"fmt"
	"os"

	"github.com/ghmcp/ghmcp/internal/config"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and create the ghmcp configuration",
	Long: `Config provides subcommands for the configuration file at
~/.config/ghmcp/config.yaml. Every key can also be set through a GHMCP_*
environment variable, e.g. GHMCP_RUNTIME=podman or GHMCP_TIMEOUTS_PULL=5m.

Examples:
  ghmcp config init
  ghmcp config show
  ghmcp config validate`,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a commented default configuration file",
	Annotations: map[string]string{skipValidation: "true"},
	RunE:        runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Print the effective configuration",
	Annotations: map[string]string{skipValidation: "true"},
	RunE:        runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:         "validate",
	Short:       "Validate the current configuration",
	Annotations: map[string]string{skipValidation: "true"},
	RunE:        runConfigValidate,
}

var initForce bool

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfgPath := cfgFile
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("determining config path: %w", err)
		}
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if !initForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		if err := os.Remove(cfgPath); err != nil {
			return fmt.Errorf("removing existing config: %w", err)
		}
	}

	path, err := config.WriteDefault(cfgPath)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created config at %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := yaml.Marshal(Cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if err := Cfg.Validate(); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), err)
		return fmt.Errorf("configuration is invalid")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
	return nil
}
