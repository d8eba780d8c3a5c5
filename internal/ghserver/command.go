// Package ghserver launches the GitHub MCP server inside a container and
// talks MCP to it over the container's stdio.
package ghserver

import (
	"strings"

	"github.com/ghmcp/ghmcp/internal/config"
)

// StdioArg selects the server's stdio transport. The server exits with a
// usage error when it is missing, so it is always emitted right after the
// image reference.
const StdioArg = "stdio"

// Command is everything needed to start one server container.
type Command struct {
	Runtime     string // runtime executable (name or absolute path)
	Image       string
	TokenEnv    string
	Token       string
	ToolsetsEnv string
	Toolsets    []string
	ExtraArgs   []string
}

// NewCommand assembles a Command from config and the startup credentials.
func NewCommand(runtimePath string, cfg *config.Config, creds config.Credentials) (Command, error) {
	extra, err := cfg.ParsedExtraArgs()
	if err != nil {
		return Command{}, err
	}
	return Command{
		Runtime:     runtimePath,
		Image:       cfg.Image,
		TokenEnv:    creds.TokenEnv,
		Token:       creds.Token,
		ToolsetsEnv: creds.ToolsetsEnv,
		Toolsets:    creds.Toolsets,
		ExtraArgs:   extra,
	}, nil
}

// Args returns the runtime arguments:
//
//	run -i --rm -e TOKEN_ENV=<token> [-e TOOLSETS_ENV=<csv>] <image> stdio [extra...]
func (c Command) Args() []string {
	return c.build(func(name, value string) string { return name + "=" + value })
}

// Redacted is Args with the token masked, safe for logs and terminals.
func (c Command) Redacted() []string {
	return c.build(func(name, value string) string {
		if name == c.TokenEnv {
			return name + "=" + config.MaskToken(value)
		}
		return name + "=" + value
	})
}

// PassthroughArgs returns the `-e NAME` form, where the runtime copies the
// value from its own environment. Client configs pair it with Env.
func (c Command) PassthroughArgs() []string {
	return c.build(func(name, _ string) string { return name })
}

// Env returns the variables PassthroughArgs expects in the environment.
func (c Command) Env() map[string]string {
	env := map[string]string{c.TokenEnv: c.Token}
	if len(c.Toolsets) > 0 && c.ToolsetsEnv != "" {
		env[c.ToolsetsEnv] = strings.Join(c.Toolsets, ",")
	}
	return env
}

// CommandLine is the redacted invocation as a single string.
func (c Command) CommandLine() string {
	return strings.Join(append([]string{c.Runtime}, c.Redacted()...), " ")
}

func (c Command) build(envArg func(name, value string) string) []string {
	args := []string{"run", "-i", "--rm", "-e", envArg(c.TokenEnv, c.Token)}
	if len(c.Toolsets) > 0 && c.ToolsetsEnv != "" {
		args = append(args, "-e", envArg(c.ToolsetsEnv, strings.Join(c.Toolsets, ",")))
	}
	args = append(args, c.Image, StdioArg)
	for _, a := range c.ExtraArgs {
		if a == StdioArg {
			continue
		}
		args = append(args, a)
	}
	return args
}
