package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for ghmcp.
type Config struct {
	Runtime     string            `yaml:"runtime" mapstructure:"runtime"` // empty = auto-detect
	Image       string            `yaml:"image" mapstructure:"image"`
	ExtraArgs   string            `yaml:"extra_args" mapstructure:"extra_args"` // shell-quoted, appended after "stdio"
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts" mapstructure:"timeouts"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" mapstructure:"diagnostics"`
	Policy      PolicyConfig      `yaml:"policy" mapstructure:"policy"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// CredentialsConfig names the environment variables the server consumes.
type CredentialsConfig struct {
	TokenEnv    string `yaml:"token_env" mapstructure:"token_env"`
	ToolsetsEnv string `yaml:"toolsets_env" mapstructure:"toolsets_env"`
}

// TimeoutsConfig bounds every subprocess and protocol exchange.
type TimeoutsConfig struct {
	Probe     time.Duration `yaml:"probe" mapstructure:"probe"`         // runtime --version / ps
	Container time.Duration `yaml:"container" mapstructure:"container"` // test container run
	Pull      time.Duration `yaml:"pull" mapstructure:"pull"`           // image pull
	Protocol  time.Duration `yaml:"protocol" mapstructure:"protocol"`   // MCP handshake and tool call
}

// DiagnosticsConfig tunes the doctor checks.
type DiagnosticsConfig struct {
	ProbeImage      string   `yaml:"probe_image" mapstructure:"probe_image"`
	MinGoVersion    string   `yaml:"min_go_version" mapstructure:"min_go_version"`
	RequiredModules []string `yaml:"required_modules" mapstructure:"required_modules"`
	Tool            string   `yaml:"tool" mapstructure:"tool"`
	ToolArgs        string   `yaml:"tool_args" mapstructure:"tool_args"` // JSON object
}

// PolicyConfig points at an optional Rego tool policy.
type PolicyConfig struct {
	ToolPolicy string `yaml:"tool_policy" mapstructure:"tool_policy"`
}

// LoggingConfig holds logging preferences.
type LoggingConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // text or json
	Level  string `yaml:"level" mapstructure:"level"`
}

// DefaultImage is the published GitHub MCP server image.
const DefaultImage = "ghcr.io/github/github-mcp-server"

// setDefaults registers default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("runtime", "")
	v.SetDefault("image", DefaultImage)
	v.SetDefault("extra_args", "")
	v.SetDefault("credentials.token_env", "GITHUB_PERSONAL_ACCESS_TOKEN")
	v.SetDefault("credentials.toolsets_env", "GITHUB_TOOLSETS")
	v.SetDefault("timeouts.probe", 5*time.Second)
	v.SetDefault("timeouts.container", 30*time.Second)
	v.SetDefault("timeouts.pull", 120*time.Second)
	v.SetDefault("timeouts.protocol", 60*time.Second)
	v.SetDefault("diagnostics.probe_image", "alpine")
	v.SetDefault("diagnostics.min_go_version", "1.22.0")
	v.SetDefault("diagnostics.required_modules", []string{
		"github.com/modelcontextprotocol/go-sdk",
		"github.com/open-policy-agent/opa",
	})
	v.SetDefault("diagnostics.tool", "get_me")
	v.SetDefault("diagnostics.tool_args", "{}")
	v.SetDefault("policy.tool_policy", "")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.level", "info")
}

// bindEnvVars binds environment variable overrides with the GHMCP_ prefix.
// Viper's AutomaticEnv only works for top-level keys by default, so nested
// keys are bound explicitly.
func bindEnvVars(v *viper.Viper) {
	bindings := map[string]string{
		"runtime":                      "GHMCP_RUNTIME",
		"image":                        "GHMCP_IMAGE",
		"extra_args":                   "GHMCP_EXTRA_ARGS",
		"credentials.token_env":        "GHMCP_CREDENTIALS_TOKEN_ENV",
		"credentials.toolsets_env":     "GHMCP_CREDENTIALS_TOOLSETS_ENV",
		"timeouts.probe":               "GHMCP_TIMEOUTS_PROBE",
		"timeouts.container":           "GHMCP_TIMEOUTS_CONTAINER",
		"timeouts.pull":                "GHMCP_TIMEOUTS_PULL",
		"timeouts.protocol":            "GHMCP_TIMEOUTS_PROTOCOL",
		"diagnostics.probe_image":      "GHMCP_DIAGNOSTICS_PROBE_IMAGE",
		"diagnostics.min_go_version":   "GHMCP_DIAGNOSTICS_MIN_GO_VERSION",
		"diagnostics.required_modules": "GHMCP_DIAGNOSTICS_REQUIRED_MODULES",
		"diagnostics.tool":             "GHMCP_DIAGNOSTICS_TOOL",
		"diagnostics.tool_args":        "GHMCP_DIAGNOSTICS_TOOL_ARGS",
		"policy.tool_policy":           "GHMCP_POLICY_TOOL_POLICY",
		"logging.format":               "GHMCP_LOGGING_FORMAT",
		"logging.level":                "GHMCP_LOGGING_LEVEL",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ghmcp"), nil
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the ghmcp configuration from disk, env vars, and defaults.
// If configPath is empty, it looks in ~/.config/ghmcp/config.yaml.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	v.SetEnvPrefix("GHMCP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("could not determine home directory", "error", err)
		} else {
			v.AddConfigPath(filepath.Join(home, ".config", "ghmcp"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// An explicitly requested file must exist.
			if configPath != "" {
				return nil, err
			}
			slog.Debug("no config file found, using defaults", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ParsedExtraArgs splits ExtraArgs with shell quoting rules.
func (c *Config) ParsedExtraArgs() ([]string, error) {
	if strings.TrimSpace(c.ExtraArgs) == "" {
		return nil, nil
	}
	args, err := shlex.Split(c.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("parsing extra_args %q: %w", c.ExtraArgs, err)
	}
	return args, nil
}

// WriteDefault creates a default config file at the given path (or the
// default location if path is empty). It does not overwrite an existing file.
func WriteDefault(path string) (string, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return "", err
		}
	}

	// Do not overwrite.
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	content := `# ghmcp configuration
# See: ghmcp --help

runtime: ""            # docker, podman or nerdctl; empty = auto-detect
image: ghcr.io/github/github-mcp-server
extra_args: ""         # appended after "stdio", e.g. "--read-only"

credentials:
  token_env: GITHUB_PERSONAL_ACCESS_TOKEN
  toolsets_env: GITHUB_TOOLSETS   # comma-separated, e.g. "repos,issues"

timeouts:
  probe: 5s
  container: 30s
  pull: 120s
  protocol: 60s

diagnostics:
  probe_image: alpine
  min_go_version: 1.22.0
  required_modules:
    - github.com/modelcontextprotocol/go-sdk
    - github.com/open-policy-agent/opa
  tool: get_me         # read-only tool called by the tool-call check
  tool_args: "{}"

policy:
  tool_policy: ""      # optional .rego file (package ghmcp.tools)

logging:
  format: text         # text or json
  level: info
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}

	return path, nil
}
