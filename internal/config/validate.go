package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
)

// imagePattern matches a container image reference.
// Simplified: registry/repo:tag or registry/repo@sha256:...
var imagePattern = regexp.MustCompile(`^[a-zA-Z0-9][\w.\-/]*[a-zA-Z0-9](:[a-zA-Z0-9][\w.\-]*)?(@sha256:[a-f0-9]{64})?$`)

// envNamePattern matches a POSIX environment variable name.
var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the configuration for invalid values and returns a
// descriptive error if any field is incorrect.
func (c *Config) Validate() error {
	var errs []string

	switch c.Runtime {
	case "", "docker", "podman", "nerdctl":
		// ok
	default:
		errs = append(errs, fmt.Sprintf("invalid runtime %q: must be empty, \"docker\", \"podman\" or \"nerdctl\"", c.Runtime))
	}

	if c.Image == "" {
		errs = append(errs, "image must not be empty")
	} else if !imagePattern.MatchString(c.Image) {
		errs = append(errs, fmt.Sprintf("invalid image reference %q", c.Image))
	}

	if args, err := c.ParsedExtraArgs(); err != nil {
		errs = append(errs, err.Error())
	} else {
		for _, a := range args {
			if a == "stdio" {
				errs = append(errs, "extra_args must not contain \"stdio\": it is always passed after the image")
				break
			}
		}
	}

	if !envNamePattern.MatchString(c.Credentials.TokenEnv) {
		errs = append(errs, fmt.Sprintf("invalid credentials.token_env %q", c.Credentials.TokenEnv))
	}
	if c.Credentials.ToolsetsEnv != "" && !envNamePattern.MatchString(c.Credentials.ToolsetsEnv) {
		errs = append(errs, fmt.Sprintf("invalid credentials.toolsets_env %q", c.Credentials.ToolsetsEnv))
	}

	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"timeouts.probe", c.Timeouts.Probe},
		{"timeouts.container", c.Timeouts.Container},
		{"timeouts.pull", c.Timeouts.Pull},
		{"timeouts.protocol", c.Timeouts.Protocol},
	} {
		if t.d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive", t.name))
		}
	}

	if c.Diagnostics.ProbeImage == "" {
		errs = append(errs, "diagnostics.probe_image must not be empty")
	}
	if _, err := semver.NewVersion(c.Diagnostics.MinGoVersion); err != nil {
		errs = append(errs, fmt.Sprintf("invalid diagnostics.min_go_version %q: %v", c.Diagnostics.MinGoVersion, err))
	}
	if c.Diagnostics.Tool == "" {
		errs = append(errs, "diagnostics.tool must not be empty")
	}
	if _, err := c.ToolArguments(); err != nil {
		errs = append(errs, err.Error())
	}

	switch c.Logging.Format {
	case "text", "json":
		// ok
	default:
		errs = append(errs, fmt.Sprintf("invalid logging.format %q: must be \"text\" or \"json\"", c.Logging.Format))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		// ok
	default:
		errs = append(errs, fmt.Sprintf("invalid logging.level %q: must be debug, info, warn, or error", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return nil
}

// ToolArguments decodes diagnostics.tool_args as a JSON object.
func (c *Config) ToolArguments() (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(c.Diagnostics.ToolArgs) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(c.Diagnostics.ToolArgs), &args); err != nil {
		return nil, fmt.Errorf("invalid diagnostics.tool_args: must be a JSON object: %w", err)
	}
	return args, nil
}
