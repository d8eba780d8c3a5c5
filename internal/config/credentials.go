package config

import (
	"os"
	"strings"
)

// Credentials is the snapshot of the credential and toolset variables taken
// once at startup. It is never refreshed during a run.
type Credentials struct {
	TokenEnv    string
	Token       string
	ToolsetsEnv string
	Toolsets    []string
}

// ReadCredentials reads the configured variables through getenv.
func ReadCredentials(c CredentialsConfig, getenv func(string) string) Credentials {
	if getenv == nil {
		getenv = os.Getenv
	}
	creds := Credentials{
		TokenEnv:    c.TokenEnv,
		ToolsetsEnv: c.ToolsetsEnv,
		Token:       strings.TrimSpace(getenv(c.TokenEnv)),
	}
	if c.ToolsetsEnv != "" {
		creds.Toolsets = SplitToolsets(getenv(c.ToolsetsEnv))
	}
	return creds
}

// HasToken reports whether a non-empty token was found.
func (c Credentials) HasToken() bool {
	return c.Token != ""
}

// MaskedToken shows the first 8 and last 4 characters of long tokens.
func (c Credentials) MaskedToken() string {
	return MaskToken(c.Token)
}

// MaskToken hides all but the edges of a secret.
func MaskToken(token string) string {
	if len(token) > 12 {
		return token[:8] + "..." + token[len(token)-4:]
	}
	return "***"
}

// SplitToolsets parses a comma-separated toolset selector, dropping blanks
// and duplicates while keeping order.
func SplitToolsets(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
