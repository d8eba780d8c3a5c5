package doctor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/coreos/go-semver/semver"

	"github.com/ghmcp/ghmcp/internal/ghserver"
	"github.com/ghmcp/ghmcp/internal/runtime"
	"github.com/ghmcp/ghmcp/internal/toolgate"
)

// Section headings.
const (
	SectionPrerequisites = "Prerequisites"
	SectionRuntime       = "Container Runtime"
	SectionProtocol      = "MCP Integration"
)

// ProbeMarker is echoed by the test container.
const ProbeMarker = "ghmcp-container-ok"

// DefaultRegistry returns the full checklist in execution order.
func DefaultRegistry() *Registry {
	return NewRegistry().
		Section(SectionPrerequisites).
		Register("go_version", CheckGoVersion).
		Register("runtime_installed", CheckRuntimeInstalled).
		Register("runtime_running", CheckRuntimeRunning).
		Register("dependencies", CheckDependencies).
		Register("credential", CheckCredential).
		Section(SectionRuntime).
		Register("container_run", CheckContainerRun).
		Register("image", CheckImage).
		Section(SectionProtocol).
		Register("protocol_handshake", CheckProtocolHandshake).
		Register("protocol_tool_call", CheckProtocolToolCall)
}

// QuickRegistry checks only the credential and the handshake.
func QuickRegistry() *Registry {
	return NewRegistry().
		Section(SectionPrerequisites).
		Register("credential", CheckCredential).
		Section(SectionProtocol).
		Register("protocol_handshake", CheckProtocolHandshake)
}

var goVersionRe = regexp.MustCompile(`^go(\d+(?:\.\d+){0,2})(.*)$`)

// parseGoVersion turns runtime.Version() output such as "go1.24.6",
// "go1.25" or "go1.25rc1" into a semantic version. ok is false for
// development toolchains.
func parseGoVersion(v string) (*semver.Version, bool, error) {
	fields := strings.Fields(v)
	if len(fields) == 0 {
		return nil, false, fmt.Errorf("empty Go version")
	}
	v = fields[0]
	if strings.HasPrefix(v, "devel") {
		return nil, false, nil
	}
	m := goVersionRe.FindStringSubmatch(v)
	if m == nil {
		return nil, false, fmt.Errorf("unrecognised Go version %q", v)
	}
	parts := strings.Split(m[1], ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	s := strings.Join(parts, ".")
	if pre := strings.TrimLeft(m[2], "-"); pre != "" {
		s += "-" + pre
	}
	ver, err := semver.NewVersion(s)
	if err != nil {
		return nil, false, err
	}
	return ver, true, nil
}

// CheckGoVersion compares the running Go toolchain with the configured
// minimum.
func CheckGoVersion(_ context.Context, env *Env) CheckResult {
	minimum, err := semver.NewVersion(env.Config.Diagnostics.MinGoVersion)
	if err != nil {
		return Fail(KindDependencyMissing, "invalid diagnostics.min_go_version %q: %v", env.Config.Diagnostics.MinGoVersion, err)
	}

	ver, ok, err := parseGoVersion(env.GoVersion)
	switch {
	case err != nil:
		return Fail(KindDependencyMissing, "%v", err)
	case !ok:
		return Pass("%s (development toolchain, not compared)", env.GoVersion)
	case ver.LessThan(*minimum):
		return Fail(KindDependencyMissing, "%s is older than the required %s", env.GoVersion, minimum).
			WithRemediation(fmt.Sprintf("Rebuild ghmcp with Go %s or newer", minimum))
	}
	return Pass("%s (requires %s or newer)", env.GoVersion, minimum)
}

// CheckRuntimeInstalled reports the outcome of runtime resolution.
func CheckRuntimeInstalled(_ context.Context, env *Env) CheckResult {
	if env.RuntimeErr != nil || env.Runtime == nil {
		err := env.RuntimeErr
		if err == nil {
			err = runtime.ErrNotFound
		}
		res := Fail(KindRuntimeUnavailable, "%v", err)
		var unavailable *runtime.UnavailableError
		if errors.As(err, &unavailable) {
			res = res.WithRemediation(fmt.Sprintf(
				"Check that %s is installed and on PATH (ghmcp runtime locate), or unset the runtime setting to auto-detect",
				unavailable.Name))
		}
		return res
	}
	return Pass("%s at %s", env.Runtime, env.Runtime.Path)
}

// requireRuntime returns a failing result when no runtime was resolved.
func requireRuntime(env *Env) (CheckResult, bool) {
	if env.Runtime != nil {
		return CheckResult{}, true
	}
	return Fail(KindRuntimeUnavailable, "skipped: no container runtime available"), false
}

// requireCredential returns a failing result when no token is set.
func requireCredential(env *Env) (CheckResult, bool) {
	if env.Credentials.HasToken() {
		return CheckResult{}, true
	}
	return Fail(KindCredentialMissing, "skipped: %s is not set", env.Credentials.TokenEnv), false
}

// CheckRuntimeRunning verifies the runtime's engine answers `ps`.
func CheckRuntimeRunning(ctx context.Context, env *Env) CheckResult {
	if res, ok := requireRuntime(env); !ok {
		return res
	}
	if err := env.Containers().Ping(ctx, env.Config.Timeouts.Probe); err != nil {
		return Fail(KindRuntimeUnavailable, "%v", err).
			WithRemediation(startHint(env.Runtime.Name))
	}
	return Pass("%s engine is running", env.Runtime.Name)
}

func startHint(name string) string {
	switch name {
	case "docker":
		return "Start Docker Desktop or OrbStack, or run: sudo systemctl start docker"
	case "podman":
		return "Start the podman machine: podman machine start"
	case "nerdctl":
		return "Start containerd (or Rancher Desktop / Lima) and retry"
	}
	return "Start the container engine and retry"
}

// CheckDependencies verifies the required modules are linked into the
// binary.
func CheckDependencies(_ context.Context, env *Env) CheckResult {
	if env.BuildInfo == nil {
		return Fail(KindDependencyMissing, "build information is not available")
	}
	info, ok := env.BuildInfo()
	if !ok || info == nil {
		return Fail(KindDependencyMissing, "build information is not available")
	}

	linked := make(map[string]string, len(info.Deps))
	for _, d := range info.Deps {
		mod := d
		if mod.Replace != nil {
			mod = mod.Replace
		}
		linked[d.Path] = mod.Version
	}

	var found, missing []string
	for _, req := range env.Config.Diagnostics.RequiredModules {
		if v, ok := lookupModule(linked, req); ok {
			found = append(found, req+"@"+v)
		} else {
			missing = append(missing, req)
		}
	}

	if len(missing) > 0 {
		return Fail(KindDependencyMissing, "missing modules: %s", strings.Join(missing, ", "))
	}
	if len(found) == 0 {
		return Pass("no required modules configured")
	}
	return Pass("%s", strings.Join(found, ", "))
}

// lookupModule matches path exactly or with a /vN major version suffix.
func lookupModule(linked map[string]string, path string) (string, bool) {
	if v, ok := linked[path]; ok {
		return v, true
	}
	for p, v := range linked {
		if rest, ok := strings.CutPrefix(p, path+"/v"); ok && rest != "" && strings.Trim(rest, "0123456789") == "" {
			return v, true
		}
	}
	return "", false
}

// CheckCredential verifies the token variable is set. The token itself is
// never printed.
func CheckCredential(_ context.Context, env *Env) CheckResult {
	creds := env.Credentials
	if !creds.HasToken() {
		return Fail(KindCredentialMissing, "%s is not set", creds.TokenEnv).
			WithRemediation(fmt.Sprintf("export %s='your_token'\nCreate a token at https://github.com/settings/tokens", creds.TokenEnv))
	}
	detail := fmt.Sprintf("%s found: %s (%d characters)", creds.TokenEnv, creds.MaskedToken(), len(creds.Token))
	if len(creds.Toolsets) > 0 {
		detail += fmt.Sprintf(", toolsets: %s", strings.Join(creds.Toolsets, ","))
	}
	return Pass("%s", detail)
}

// CheckContainerRun starts a throwaway container and looks for its output.
func CheckContainerRun(ctx context.Context, env *Env) CheckResult {
	if res, ok := requireRuntime(env); !ok {
		return res
	}
	image := env.Config.Diagnostics.ProbeImage
	if err := env.Containers().RunProbe(ctx, env.Config.Timeouts.Container, image, ProbeMarker); err != nil {
		return Fail(KindRuntimeUnavailable, "%s cannot run containers: %v", env.Runtime.Name, err)
	}
	return Pass("%s can run containers (%s)", env.Runtime.Name, image)
}

// CheckImage verifies the server image is present, pulling it if needed.
func CheckImage(ctx context.Context, env *Env) CheckResult {
	if res, ok := requireRuntime(env); !ok {
		return res
	}
	image := env.Config.Image
	status, err := env.Containers().EnsureImage(ctx, env.Config.Timeouts.Probe, env.Config.Timeouts.Pull, image)
	if err != nil {
		return Fail(KindImageUnavailable, "%v", err).
			WithRemediation(fmt.Sprintf("Pull the image manually: %s pull %s", env.Runtime.Name, image))
	}
	if status.Pulled {
		return Pass("pulled %s", status.Ref)
	}
	return Pass("available locally: %s", status.Ref)
}

// dial starts a server session bounded by the protocol timeout. The
// returned cancel must be called after the session is closed.
func dial(ctx context.Context, env *Env) (ghserver.Conn, context.Context, context.CancelFunc, error) {
	cmd, err := env.ServerCommand()
	if err != nil {
		return nil, nil, nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, env.Config.Timeouts.Protocol)
	conn, err := env.Dial(pctx, cmd)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return conn, pctx, cancel, nil
}

// CheckProtocolHandshake starts the server over stdio, completes the MCP
// initialize exchange and lists the tools.
func CheckProtocolHandshake(ctx context.Context, env *Env) CheckResult {
	if res, ok := requireRuntime(env); !ok {
		return res
	}
	if res, ok := requireCredential(env); !ok {
		return res
	}

	conn, pctx, cancel, err := dial(ctx, env)
	if err != nil {
		return Fail(KindProtocolConnectFailed, "%v", err)
	}
	defer cancel()
	defer conn.Close()

	tools, err := conn.ListTools(pctx)
	if err != nil {
		return Fail(KindProtocolConnectFailed, "connected but could not list tools: %v", err)
	}
	if len(tools) == 0 {
		return Fail(KindProtocolConnectFailed, "connected but the server exposes no tools").
			WithRemediation(fmt.Sprintf("Check the %s variable selects at least one toolset", env.Credentials.ToolsetsEnv))
	}
	return Pass("connected, %d tools available (%s)", len(tools), previewTools(tools, 5))
}

func previewTools(tools []ghserver.Tool, n int) string {
	names := make([]string, 0, n)
	for i, t := range tools {
		if i == n {
			break
		}
		names = append(names, t.Name)
	}
	s := strings.Join(names, ", ")
	if len(tools) > n {
		s += fmt.Sprintf(", ... and %d more", len(tools)-n)
	}
	return s
}

// CheckProtocolToolCall calls the configured read-only tool on a fresh
// session.
func CheckProtocolToolCall(ctx context.Context, env *Env) CheckResult {
	if res, ok := requireRuntime(env); !ok {
		return res
	}
	if res, ok := requireCredential(env); !ok {
		return res
	}

	tool := env.Config.Diagnostics.Tool
	if env.GateErr != nil {
		return Fail(KindProtocolCallFailed, "tool policy unavailable: %v", env.GateErr).
			WithRemediation("Fix or remove policy.tool_policy")
	}
	if env.Gate != nil {
		if err := env.Gate.Check(ctx, tool); err != nil {
			var denied *toolgate.DeniedError
			if errors.As(err, &denied) {
				return Fail(KindProtocolCallFailed, "%v", err).
					WithRemediation("Choose a read-only diagnostics.tool or allow it in the tool policy")
			}
			return Fail(KindProtocolCallFailed, "%v", err)
		}
	}

	args, err := env.Config.ToolArguments()
	if err != nil {
		return Fail(KindProtocolCallFailed, "%v", err)
	}

	conn, pctx, cancel, err := dial(ctx, env)
	if err != nil {
		return Fail(KindProtocolConnectFailed, "%v", err)
	}
	defer cancel()
	defer conn.Close()

	res, err := conn.CallTool(pctx, tool, args)
	if err != nil {
		return Fail(KindProtocolCallFailed, "%v", err)
	}
	return Pass("%s returned %s", tool, summarize(res.Text, 80))
}

func summarize(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "an empty result"
	}
	if r := []rune(s); len(r) > max {
		s = string(r[:max]) + "..."
	}
	return fmt.Sprintf("%q", s)
}
