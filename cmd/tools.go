package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ghmcp/ghmcp/internal/container"
	"github.com/ghmcp/ghmcp/internal/ghserver"
	"github.com/ghmcp/ghmcp/internal/toolgate"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List and call GitHub MCP server tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools the server exposes",
	RunE:  runToolsList,
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Call one tool and print its result",
	Long: `Call starts the server, calls a tool and prints the text it returns.
The tool must be allowed by the tool policy: by default only read-only
tools (get_*, list_*, search_*) are allowed. Point policy.tool_policy at a
Rego file (package ghmcp.tools) to change that.

Example:
  ghmcp tools call get_file_contents --args '{"owner":"github","repo":"docs","path":"README.md"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runToolsCall,
}

func init() {
	toolsListCmd.Flags().Bool("json", false, "print tools as JSON")
	toolsCallCmd.Flags().String("args", "{}", "tool arguments as a JSON object")

	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
	rootCmd.AddCommand(toolsCmd)
}

// newManager resolves the runtime and returns a stopped server manager.
func newManager(cmd *cobra.Command) (*ghserver.Manager, error) {
	rt, server, err := serverCommand(cmd.Context())
	if err != nil {
		return nil, err
	}
	return ghserver.NewManager(server, ghserver.Dial, ghserver.ManagerOptions{
		HandshakeTimeout: Cfg.Timeouts.Protocol,
		ContainerLookup:  container.NewClient(*rt, runner),
		LookupTimeout:    Cfg.Timeouts.Probe,
	}), nil
}

func runToolsList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	ctx := cmd.Context()

	m, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer m.Stop()

	if err := m.Start(ctx); err != nil {
		return err
	}
	tools := m.Tools()
	slog.Debug("server state", "info", m.Info())

	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.MarshalIndent(tools, "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling tools: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	width := 0
	for _, t := range tools {
		width = max(width, len(t.Name))
	}
	for _, t := range tools {
		marker := "  "
		if t.ReadOnly {
			marker = "ro"
		}
		fmt.Fprintf(out, "  %s  %-*s  %s\n", marker, width, t.Name, t.Description)
	}
	fmt.Fprintf(out, "\n%d tools available\n", len(tools))
	return nil
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	tool := args[0]
	rawArgs, _ := cmd.Flags().GetString("args")
	ctx := cmd.Context()

	toolArgs := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
			return fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}

	gate, err := toolgate.New(ctx, Cfg.Policy.ToolPolicy)
	if err != nil {
		return err
	}
	if err := gate.Check(ctx, tool); err != nil {
		return err
	}

	m, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer m.Stop()

	res, err := m.CallTool(ctx, tool, toolArgs)
	slog.Debug("server state", "info", m.Info())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return nil
}
