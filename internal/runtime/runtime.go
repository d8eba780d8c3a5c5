// Package runtime resolves which container runtime executable is usable on
// the host. Runtimes are plain data: an ordered list of executable names that
// all accept the docker CLI surface (run, ps, images, pull).
package runtime

import (
	"fmt"
	"strings"
	"time"
)

// Candidates is the fixed probe order used when no runtime is preferred.
var Candidates = []string{"docker", "podman", "nerdctl"}

// DefaultProbeTimeout bounds each `--version` probe.
const DefaultProbeTimeout = 5 * time.Second

// RuntimeInfo describes the resolved container runtime.
type RuntimeInfo struct {
	Name    string // "docker", "podman" or "nerdctl"
	Path    string // absolute path to binary
	Version string // first line of `<name> --version`
}

func (r RuntimeInfo) String() string {
	if r.Version == "" {
		return r.Name
	}
	return fmt.Sprintf("%s (%s)", r.Name, r.Version)
}

// IsCandidate reports whether name is one of the known runtimes.
func IsCandidate(name string) bool {
	for _, c := range Candidates {
		if c == name {
			return true
		}
	}
	return false
}

// ErrNotFound is returned when no candidate runtime responds.
var ErrNotFound = &NotFoundError{Tried: Candidates}

// NotFoundError indicates no supported container runtime was found.
type NotFoundError struct {
	Tried []string
}

func (e *NotFoundError) Error() string {
	return "no container runtime found (tried: " + strings.Join(e.Tried, ", ") + "): install Docker, OrbStack, Podman or nerdctl"
}

// Is makes every *NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// UnavailableError is returned when an explicitly requested runtime does not
// respond to its version probe.
type UnavailableError struct {
	Name string
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("container runtime %q is unavailable: %v", e.Name, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
