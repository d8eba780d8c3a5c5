package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ghmcp/ghmcp/internal/execx"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the GitHub MCP server in the foreground over stdio",
	Long: `Run starts the server container with this process's stdin and stdout
attached, exactly as an MCP client would. Use it as the client's command, or
with --print to see the command line (token masked).`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("print", false, "print the command line instead of running it")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	printOnly, _ := cmd.Flags().GetBool("print")
	ctx := cmd.Context()

	_, server, err := serverCommand(ctx)
	if err != nil {
		return err
	}

	if printOnly {
		fmt.Fprintln(cmd.OutOrStdout(), server.CommandLine())
		return nil
	}

	if !Creds.HasToken() {
		return fmt.Errorf("%s is not set; the server cannot authenticate", Creds.TokenEnv)
	}

	slog.Debug("starting server in foreground", "command", server.CommandLine())
	return execx.Attach(ctx, 10*time.Second, server.Runtime, server.Args()...)
}
