package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	// Isolate from host config: point HOME at an empty temp dir so
	// Load("") cannot pick up ~/.config/ghmcp/config.yaml.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() with no config file: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"runtime", cfg.Runtime, ""},
		{"image", cfg.Image, "ghcr.io/github/github-mcp-server"},
		{"extra_args", cfg.ExtraArgs, ""},
		{"credentials.token_env", cfg.Credentials.TokenEnv, "GITHUB_PERSONAL_ACCESS_TOKEN"},
		{"credentials.toolsets_env", cfg.Credentials.ToolsetsEnv, "GITHUB_TOOLSETS"},
		{"timeouts.probe", cfg.Timeouts.Probe, 5 * time.Second},
		{"timeouts.container", cfg.Timeouts.Container, 30 * time.Second},
		{"timeouts.pull", cfg.Timeouts.Pull, 120 * time.Second},
		{"timeouts.protocol", cfg.Timeouts.Protocol, 60 * time.Second},
		{"diagnostics.probe_image", cfg.Diagnostics.ProbeImage, "alpine"},
		{"diagnostics.min_go_version", cfg.Diagnostics.MinGoVersion, "1.22.0"},
		{"diagnostics.tool", cfg.Diagnostics.Tool, "get_me"},
		{"logging.format", cfg.Logging.Format, "text"},
		{"logging.level", cfg.Logging.Level, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("default %s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if len(cfg.Diagnostics.RequiredModules) != 2 {
		t.Errorf("default required_modules = %v", cfg.Diagnostics.RequiredModules)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := `runtime: podman
image: ghcr.io/github/github-mcp-server:v0.20.0
extra_args: "--read-only --toolsets 'repos,issues'"
credentials:
  token_env: GH_TOKEN
timeouts:
  probe: 2s
  protocol: 90s
diagnostics:
  probe_image: busybox
  tool: search_repositories
  tool_args: '{"query": "repo:github/docs"}'
logging:
  format: json
  level: debug
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load(%s): %v", cfgPath, err)
	}

	if cfg.Runtime != "podman" {
		t.Errorf("runtime = %q, want %q", cfg.Runtime, "podman")
	}
	if cfg.Image != "ghcr.io/github/github-mcp-server:v0.20.0" {
		t.Errorf("image = %q", cfg.Image)
	}
	if cfg.Credentials.TokenEnv != "GH_TOKEN" {
		t.Errorf("credentials.token_env = %q, want GH_TOKEN", cfg.Credentials.TokenEnv)
	}
	if cfg.Credentials.ToolsetsEnv != "GITHUB_TOOLSETS" {
		t.Errorf("unset credentials.toolsets_env should keep default, got %q", cfg.Credentials.ToolsetsEnv)
	}
	if cfg.Timeouts.Probe != 2*time.Second {
		t.Errorf("timeouts.probe = %v, want 2s", cfg.Timeouts.Probe)
	}
	if cfg.Timeouts.Protocol != 90*time.Second {
		t.Errorf("timeouts.protocol = %v, want 90s", cfg.Timeouts.Protocol)
	}
	if cfg.Diagnostics.ProbeImage != "busybox" {
		t.Errorf("diagnostics.probe_image = %q", cfg.Diagnostics.ProbeImage)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Errorf("logging = %+v", cfg.Logging)
	}

	args, err := cfg.ParsedExtraArgs()
	if err != nil {
		t.Fatalf("ParsedExtraArgs: %v", err)
	}
	if want := []string{"--read-only", "--toolsets", "repos,issues"}; !reflect.DeepEqual(args, want) {
		t.Errorf("ParsedExtraArgs() = %q, want %q", args, want)
	}

	toolArgs, err := cfg.ToolArguments()
	if err != nil {
		t.Fatalf("ToolArguments: %v", err)
	}
	if toolArgs["query"] != "repo:github/docs" {
		t.Errorf("ToolArguments() = %v", toolArgs)
	}
}

func TestEnvVarOverrides(t *testing.T) {
	// Isolate from host config.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	t.Setenv("GHMCP_RUNTIME", "nerdctl")
	t.Setenv("GHMCP_IMAGE", "registry.example.com/mirror/github-mcp-server:latest")
	t.Setenv("GHMCP_DIAGNOSTICS_TOOL", "list_issues")
	t.Setenv("GHMCP_TIMEOUTS_PULL", "5m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if cfg.Runtime != "nerdctl" {
		t.Errorf("runtime = %q, want %q (from GHMCP_RUNTIME)", cfg.Runtime, "nerdctl")
	}
	if cfg.Image != "registry.example.com/mirror/github-mcp-server:latest" {
		t.Errorf("image = %q (from GHMCP_IMAGE)", cfg.Image)
	}
	if cfg.Diagnostics.Tool != "list_issues" {
		t.Errorf("diagnostics.tool = %q (from GHMCP_DIAGNOSTICS_TOOL)", cfg.Diagnostics.Tool)
	}
	if cfg.Timeouts.Pull != 5*time.Minute {
		t.Errorf("timeouts.pull = %v (from GHMCP_TIMEOUTS_PULL)", cfg.Timeouts.Pull)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() with missing explicit path should return error")
	}
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nested", "config.yaml")

	path, err := WriteDefault(cfgPath)
	if err != nil {
		t.Fatalf("WriteDefault(): %v", err)
	}
	if path != cfgPath {
		t.Errorf("WriteDefault returned %q, want %q", path, cfgPath)
	}

	// The written default must load and validate.
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load(default file): %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default file does not validate: %v", err)
	}

	// Should not overwrite existing file.
	if err := os.WriteFile(cfgPath, []byte("custom content"), 0o644); err != nil {
		t.Fatalf("writing custom content: %v", err)
	}
	if _, err := WriteDefault(cfgPath); err != nil {
		t.Fatalf("WriteDefault() on existing file: %v", err)
	}
	data, _ := os.ReadFile(cfgPath)
	if string(data) != "custom content" {
		t.Error("WriteDefault should not overwrite existing file")
	}
}
