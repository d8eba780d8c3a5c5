package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Runtime: "",
		Image:   DefaultImage,
		Credentials: CredentialsConfig{
			TokenEnv:    "GITHUB_PERSONAL_ACCESS_TOKEN",
			ToolsetsEnv: "GITHUB_TOOLSETS",
		},
		Timeouts: TimeoutsConfig{
			Probe:     5 * time.Second,
			Container: 30 * time.Second,
			Pull:      2 * time.Minute,
			Protocol:  time.Minute,
		},
		Diagnostics: DiagnosticsConfig{
			ProbeImage:   "alpine",
			MinGoVersion: "1.22.0",
			Tool:         "get_me",
			ToolArgs:     "{}",
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

func TestValidateValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on valid config: %v", err)
	}
}

func TestValidateRuntime(t *testing.T) {
	for _, rt := range []string{"", "docker", "podman", "nerdctl"} {
		cfg := validConfig()
		cfg.Runtime = rt
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() with runtime=%q: %v", rt, err)
		}
	}

	cfg := validConfig()
	cfg.Runtime = "containerd"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should fail for runtime=containerd")
	}
}

func TestValidateImageFormat(t *testing.T) {
	tests := []struct {
		image string
		valid bool
	}{
		{"ghcr.io/github/github-mcp-server", true},
		{"ghcr.io/github/github-mcp-server:v0.20.0", true},
		{"github-mcp-server:latest", true},
		{"", false},
		{"invalid image ref!", false},
	}

	for _, tt := range tests {
		cfg := validConfig()
		cfg.Image = tt.image
		err := cfg.Validate()
		if tt.valid && err != nil {
			t.Errorf("Validate() with image=%q should pass, got: %v", tt.image, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("Validate() with image=%q should fail", tt.image)
		}
	}
}

func TestValidateExtraArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    string
		wantErr string
	}{
		{"empty", "", ""},
		{"flags", "--read-only --dynamic-toolsets", ""},
		{"stdio repeated", "stdio --read-only", "must not contain \"stdio\""},
		{"unterminated quote", "--toolsets 'repos", "parsing extra_args"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.ExtraArgs = tt.args
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad token env", func(c *Config) { c.Credentials.TokenEnv = "1TOKEN" }, "credentials.token_env"},
		{"empty token env", func(c *Config) { c.Credentials.TokenEnv = "" }, "credentials.token_env"},
		{"bad toolsets env", func(c *Config) { c.Credentials.ToolsetsEnv = "A-B" }, "credentials.toolsets_env"},
		{"zero probe timeout", func(c *Config) { c.Timeouts.Probe = 0 }, "timeouts.probe"},
		{"negative pull timeout", func(c *Config) { c.Timeouts.Pull = -time.Second }, "timeouts.pull"},
		{"empty probe image", func(c *Config) { c.Diagnostics.ProbeImage = "" }, "diagnostics.probe_image"},
		{"bad go version", func(c *Config) { c.Diagnostics.MinGoVersion = "1.22" }, "diagnostics.min_go_version"},
		{"empty tool", func(c *Config) { c.Diagnostics.Tool = "" }, "diagnostics.tool"},
		{"tool args not object", func(c *Config) { c.Diagnostics.ToolArgs = "[1,2]" }, "diagnostics.tool_args"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Runtime = "lxc"
	cfg.Image = ""
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	for _, want := range []string{"runtime", "image", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q: %v", want, err)
		}
	}
}

func TestValidateTimeoutErrorOrder(t *testing.T) {
	cfg := validConfig()
	cfg.Timeouts = TimeoutsConfig{}

	want := "config validation failed:\n" +
		"  timeouts.probe must be positive\n" +
		"  timeouts.container must be positive\n" +
		"  timeouts.pull must be positive\n" +
		"  timeouts.protocol must be positive"
	for i := 0; i < 5; i++ {
		err := cfg.Validate()
		if err == nil {
			t.Fatal("expected error for zero timeouts")
		}
		if err.Error() != want {
			t.Fatalf("Validate() = %q, want %q", err.Error(), want)
		}
	}
}
