package cmd

import (
	"fmt"

	"github.com/ghmcp/ghmcp/internal/mcpconfig"
	"github.com/spf13/cobra"
)

var clientConfigCmd = &cobra.Command{
	Use:   "client-config",
	Short: "Generate MCP client configuration for the GitHub server",
	Long: `Client-config prints an mcpServers entry that starts the GitHub MCP
server through the resolved runtime. With --output the entry is merged into
an existing client config file, keeping its other servers.

The token is written as a ${VAR} placeholder unless --include-token is set.`,
	RunE: runClientConfig,
}

func init() {
	clientConfigCmd.Flags().StringP("output", "o", "", "merge into this client config file instead of printing")
	clientConfigCmd.Flags().Bool("include-token", false, "write the token value into the config")
	rootCmd.AddCommand(clientConfigCmd)
}

func runClientConfig(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	includeToken, _ := cmd.Flags().GetBool("include-token")

	if includeToken && !Creds.HasToken() {
		return fmt.Errorf("--include-token given but %s is not set", Creds.TokenEnv)
	}

	_, server, err := serverCommand(cmd.Context())
	if err != nil {
		return err
	}

	opts := mcpconfig.Options{IncludeToken: includeToken}
	if output == "" {
		return mcpconfig.Write(cmd.OutOrStdout(), mcpconfig.Build(server, opts))
	}

	if err := mcpconfig.Merge(output, mcpconfig.Entry(server, opts)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %q server to %s\n", mcpconfig.ServerKey, output)
	return nil
}
