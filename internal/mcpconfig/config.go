// Package mcpconfig writes MCP client configuration for the GitHub server.
package mcpconfig

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ghmcp/ghmcp/internal/ghserver"
)

// ServerKey is the entry name used under mcpServers.
const ServerKey = "github"

// ServerEntry is a single MCP server in a client config.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Config is the top-level MCP configuration file format shared by most
// MCP clients.
type Config struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
}

// Options controls how the entry is generated.
type Options struct {
	// IncludeToken writes the real token into env instead of a
	// ${VAR} placeholder.
	IncludeToken bool
}

// Entry builds the server entry for c.
func Entry(c ghserver.Command, opts Options) ServerEntry {
	env := c.Env()
	if !opts.IncludeToken {
		env[c.TokenEnv] = "${" + c.TokenEnv + "}"
	}
	return ServerEntry{
		Command: c.Runtime,
		Args:    c.PassthroughArgs(),
		Env:     env,
	}
}

// Build returns a config containing only the GitHub server.
func Build(c ghserver.Command, opts Options) Config {
	return Config{MCPServers: map[string]ServerEntry{ServerKey: Entry(c, opts)}}
}

// Write encodes cfg as indented JSON.
func Write(w io.Writer, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling MCP config: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Merge sets the GitHub entry in the client config at path, keeping every
// other server and top-level key. The file is created when missing.
func Merge(path string, entry ServerEntry) error {
	doc := map[string]json.RawMessage{}
	servers := map[string]json.RawMessage{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if raw, ok := doc["mcpServers"]; ok {
			if err := json.Unmarshal(raw, &servers); err != nil {
				return fmt.Errorf("parsing mcpServers in %s: %w", path, err)
			}
		}
	case os.IsNotExist(err):
	default:
		return fmt.Errorf("reading MCP config: %w", err)
	}
	// A literal null decodes to a nil map.
	if doc == nil {
		doc = map[string]json.RawMessage{}
	}
	if servers == nil {
		servers = map[string]json.RawMessage{}
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling server entry: %w", err)
	}
	servers[ServerKey] = raw

	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return fmt.Errorf("marshaling mcpServers: %w", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling MCP config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	// The file may hold a token, so keep it private.
	if err := os.WriteFile(path, append(out, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing MCP config: %w", err)
	}
	slog.Info("wrote MCP config", "path", path, "servers", len(servers))
	return nil
}
