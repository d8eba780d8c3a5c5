// Package doctor runs the ordered diagnostic checklist for a GitHub MCP
// setup and collects one result per check.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Kind classifies why a check failed.
type Kind string

const (
	KindRuntimeUnavailable    Kind = "RuntimeUnavailable"
	KindCredentialMissing     Kind = "CredentialMissing"
	KindDependencyMissing     Kind = "DependencyMissing"
	KindImageUnavailable      Kind = "ImageUnavailable"
	KindProtocolConnectFailed Kind = "ProtocolConnectFailed"
	KindProtocolCallFailed    Kind = "ProtocolCallFailed"
	KindCheckPanicked         Kind = "CheckPanicked"
)

// CheckResult represents the outcome of a single diagnostic check.
type CheckResult struct {
	Name        string `json:"name" yaml:"name"`
	Section     string `json:"section,omitempty" yaml:"section,omitempty"`
	Passed      bool   `json:"passed" yaml:"passed"`
	Detail      string `json:"detail" yaml:"detail"`
	Kind        Kind   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Remediation string `json:"remediation,omitempty" yaml:"remediation,omitempty"`
}

// Pass returns a passing result.
func Pass(detail string, args ...any) CheckResult {
	return CheckResult{Passed: true, Detail: fmt.Sprintf(detail, args...)}
}

// Fail returns a failing result of the given kind.
func Fail(kind Kind, detail string, args ...any) CheckResult {
	return CheckResult{Kind: kind, Detail: fmt.Sprintf(detail, args...)}
}

// WithRemediation sets the remediation hint.
func (r CheckResult) WithRemediation(hint string) CheckResult {
	r.Remediation = hint
	return r
}

// Report is the ordered collection of check results from one run.
type Report struct {
	Results []CheckResult `json:"results" yaml:"results"`
}

// Passed reports whether every check passed. An empty report does not pass.
func (r *Report) Passed() bool {
	if len(r.Results) == 0 {
		return false
	}
	return r.PassedCount() == len(r.Results)
}

// PassedCount returns the number of passing checks.
func (r *Report) PassedCount() int {
	n := 0
	for _, c := range r.Results {
		if c.Passed {
			n++
		}
	}
	return n
}

// Summary returns the "<k>/<n> tests passed" line.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d/%d tests passed", r.PassedCount(), len(r.Results))
}

// Failed returns the failing results in order.
func (r *Report) Failed() []CheckResult {
	var out []CheckResult
	for _, c := range r.Results {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

type reportDoc struct {
	Passed      bool          `json:"passed" yaml:"passed"`
	PassedCount int           `json:"passed_count" yaml:"passed_count"`
	Total       int           `json:"total" yaml:"total"`
	Summary     string        `json:"summary" yaml:"summary"`
	Results     []CheckResult `json:"results" yaml:"results"`
}

func (r *Report) doc() reportDoc {
	return reportDoc{
		Passed:      r.Passed(),
		PassedCount: r.PassedCount(),
		Total:       len(r.Results),
		Summary:     r.Summary(),
		Results:     r.Results,
	}
}

// JSON returns the report as formatted JSON.
func (r *Report) JSON() (string, error) {
	data, err := json.MarshalIndent(r.doc(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// YAML returns the report as YAML.
func (r *Report) YAML() (string, error) {
	data, err := yaml.Marshal(r.doc())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CheckFunc performs one diagnostic. It reports problems through the
// returned result and should not panic.
type CheckFunc func(ctx context.Context, env *Env) CheckResult

type check struct {
	name    string
	section string
	fn      CheckFunc
}

// Registry is an ordered set of uniquely named checks.
type Registry struct {
	checks  []check
	names   map[string]bool
	section string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Section sets the heading for checks registered after it.
func (r *Registry) Section(title string) *Registry {
	r.section = title
	return r
}

// Register appends a check. Registering the same name twice panics.
func (r *Registry) Register(name string, fn CheckFunc) *Registry {
	if name == "" || fn == nil {
		panic("doctor: Register called with empty name or nil check")
	}
	if r.names[name] {
		panic(fmt.Sprintf("doctor: check %q registered twice", name))
	}
	r.names[name] = true
	r.checks = append(r.checks, check{name: name, section: r.section, fn: fn})
	return r
}

// Len returns the number of registered checks.
func (r *Registry) Len() int { return len(r.checks) }

// Names returns the registered check names in order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.name
	}
	return names
}

// Run executes every check in registration order and always returns one
// result per check. A check that panics yields a failing result.
func (r *Registry) Run(ctx context.Context, env *Env) *Report {
	report := &Report{Results: make([]CheckResult, 0, len(r.checks))}
	for _, c := range r.checks {
		res := runOne(ctx, env, c)
		slog.Debug("check finished", "check", res.Name, "passed", res.Passed, "kind", res.Kind)
		report.Results = append(report.Results, res)
	}
	return report
}

func runOne(ctx context.Context, env *Env, c check) (res CheckResult) {
	defer func() {
		if p := recover(); p != nil {
			slog.Debug("check panicked", "check", c.name, "panic", p, "stack", string(debug.Stack()))
			res = Fail(KindCheckPanicked, "%v", p)
		}
		res.Name = c.name
		res.Section = c.section
		if !res.Passed && res.Kind == "" {
			res.Kind = KindCheckPanicked
		}
		if !res.Passed && res.Remediation == "" {
			res.Remediation = defaultRemediation(res.Kind)
		}
	}()

	if err := ctx.Err(); err != nil {
		return Fail(KindCheckPanicked, "not run: %v", err)
	}
	return c.fn(ctx, env)
}

func defaultRemediation(k Kind) string {
	switch k {
	case KindRuntimeUnavailable:
		return "Install Docker (https://docs.docker.com/get-docker/), OrbStack, Podman or nerdctl and make sure its engine is running"
	case KindCredentialMissing:
		return "Create a token at https://github.com/settings/tokens and export it before running ghmcp"
	case KindDependencyMissing:
		return "Rebuild ghmcp from source with a supported Go toolchain"
	case KindImageUnavailable:
		return "Pull the server image manually and check registry access"
	case KindProtocolConnectFailed:
		return "Check the server container logs, the token's scopes and network connectivity"
	case KindProtocolCallFailed:
		return "Verify the token has the scopes the tool needs (repo, read:org)"
	case KindCheckPanicked:
		return "Re-run with --verbose and report the failure"
	}
	return ""
}

// Troubleshooting returns the distinct remediation hints of failing checks
// in report order.
func Troubleshooting(r *Report) []string {
	seen := make(map[string]bool)
	var hints []string
	for _, c := range r.Failed() {
		for _, line := range strings.Split(c.Remediation, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || seen[line] {
				continue
			}
			seen[line] = true
			hints = append(hints, line)
		}
	}
	return hints
}
