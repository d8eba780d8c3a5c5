// Package toolgate decides which MCP tools ghmcp may call, using an
// embedded OPA policy.
package toolgate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Query is the document every tool policy must define.
const Query = "data.ghmcp.tools"

// DefaultPolicy allows read-only tools by name prefix.
const DefaultPolicy = `package ghmcp.tools

default allow := false

read_only_prefixes := ["get_", "list_", "search_"]

allow if {
	some prefix in read_only_prefixes
	startswith(input.tool, prefix)
}

deny contains msg if {
	not allow
	msg := sprintf("tool %q is not read-only", [input.tool])
}
`

// Decision is the outcome of evaluating one tool name.
type Decision struct {
	Tool    string `json:"tool"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Source  string `json:"source"`
}

// DeniedError is returned by Check when the policy refuses a tool.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	msg := fmt.Sprintf("tool %s denied by policy %s", e.Decision.Tool, e.Decision.Source)
	if e.Decision.Reason != "" {
		msg += ": " + e.Decision.Reason
	}
	return msg
}

// Gate holds a prepared policy query.
type Gate struct {
	query  rego.PreparedEvalQuery
	source string
}

// New prepares the default policy, or the Rego file at path when path is
// not empty.
func New(ctx context.Context, path string) (*Gate, error) {
	name, src := "default.rego", DefaultPolicy
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading tool policy: %w", err)
		}
		name, src = path, string(data)
	}

	pq, err := rego.New(
		rego.Query(Query),
		rego.Module(name, src),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing tool policy %s: %w", name, err)
	}

	slog.Debug("tool policy loaded", "source", name)
	return &Gate{query: pq, source: name}, nil
}

// Source names the policy module in use.
func (g *Gate) Source() string { return g.source }

// Evaluate runs the policy for tool. A missing or malformed result is a
// denial, not an error.
func (g *Gate) Evaluate(ctx context.Context, tool string) (Decision, error) {
	d := Decision{Tool: tool, Source: g.source}

	rs, err := g.query.Eval(ctx, rego.EvalInput(map[string]any{"tool": tool}))
	if err != nil {
		return d, fmt.Errorf("evaluating tool policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		d.Reason = "policy returned no result"
		return d, nil
	}

	doc, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		d.Reason = "could not parse policy result"
		return d, nil
	}

	if allow, ok := doc["allow"].(bool); ok {
		d.Allowed = allow
	}
	if reasons := denyReasons(doc["deny"]); len(reasons) > 0 {
		d.Allowed = false
		d.Reason = strings.Join(reasons, "; ")
	}
	if !d.Allowed && d.Reason == "" {
		d.Reason = "not allowed"
	}

	slog.Debug("tool policy decision", "tool", tool, "allowed", d.Allowed, "reason", d.Reason)
	return d, nil
}

// Check is Evaluate returning a *DeniedError for denials.
func (g *Gate) Check(ctx context.Context, tool string) error {
	d, err := g.Evaluate(ctx, tool)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &DeniedError{Decision: d}
	}
	return nil
}

func denyReasons(v any) []string {
	var reasons []string
	switch d := v.(type) {
	case []any:
		for _, r := range d {
			reasons = append(reasons, fmt.Sprint(r))
		}
	case map[string]any:
		for k := range d {
			reasons = append(reasons, k)
		}
	}
	sort.Strings(reasons)
	return reasons
}
