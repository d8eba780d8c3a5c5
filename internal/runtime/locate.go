package runtime

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ghmcp/ghmcp/internal/execx"
)

// knownLocations lists install paths that are often missing from PATH,
// particularly for GUI-launched processes on macOS.
var knownLocations = []string{
	"/usr/local/bin/docker",
	"/opt/homebrew/bin/docker",
	"/usr/bin/docker",
	"/opt/local/bin/docker",
	"~/.orbstack/bin/docker",
	"/Applications/OrbStack.app/Contents/MacOS/docker",
	"/Applications/Docker.app/Contents/Resources/bin/docker",
	"/usr/local/bin/podman",
	"/opt/homebrew/bin/podman",
	"/usr/bin/podman",
	"/opt/podman/bin/podman",
	"/usr/local/bin/nerdctl",
	"/usr/bin/nerdctl",
	"~/.rd/bin/nerdctl",
}

// Location is the state of one well-known install path.
type Location struct {
	Path       string `json:"path"`
	Exists     bool   `json:"exists"`
	Executable bool   `json:"executable"`
	Version    string `json:"version,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Locate inspects the well-known install locations for every candidate
// runtime. Executable files are probed with --version.
func Locate(ctx context.Context, r execx.Runner, timeout time.Duration) []Location {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	home, _ := os.UserHomeDir()

	out := make([]Location, 0, len(knownLocations))
	for _, p := range knownLocations {
		loc := Location{Path: expandHome(p, home)}

		fi, err := os.Stat(loc.Path)
		if err != nil || fi.IsDir() {
			out = append(out, loc)
			continue
		}
		loc.Exists = true
		loc.Executable = fi.Mode().Perm()&0o111 != 0

		if loc.Executable {
			res, err := r.Run(ctx, timeout, loc.Path, "--version")
			if err != nil {
				loc.Error = err.Error()
			} else {
				loc.Version = res.FirstLine()
			}
		}
		out = append(out, loc)
	}
	return out
}

// ShellPath is what a login shell reports for a runtime name.
type ShellPath struct {
	Shell string `json:"shell"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// LoginShellPaths asks bash, zsh and sh (as login shells) where they find
// name. A runtime visible to a login shell but not to this process points at
// a PATH difference rather than a missing install.
func LoginShellPaths(ctx context.Context, r execx.Runner, name string, timeout time.Duration) []ShellPath {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	var out []ShellPath
	for _, shell := range []string{"bash", "zsh", "sh"} {
		sp := ShellPath{Shell: shell}
		if _, err := r.LookPath(shell); err != nil {
			sp.Error = "shell not installed"
			out = append(out, sp)
			continue
		}
		res, err := r.Run(ctx, timeout, shell, "-l", "-c", "command -v "+name)
		switch {
		case err != nil:
			sp.Error = err.Error()
		case strings.TrimSpace(res.Stdout) == "":
			sp.Error = "not found"
		default:
			sp.Path = res.FirstLine()
		}
		out = append(out, sp)
	}
	return out
}

func expandHome(p, home string) string {
	if home == "" {
		return p
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return p
}
