package doctor

import (
	"context"
	goruntime "runtime"
	"runtime/debug"

	"github.com/ghmcp/ghmcp/internal/config"
	"github.com/ghmcp/ghmcp/internal/container"
	"github.com/ghmcp/ghmcp/internal/execx"
	"github.com/ghmcp/ghmcp/internal/ghserver"
	"github.com/ghmcp/ghmcp/internal/runtime"
	"github.com/ghmcp/ghmcp/internal/toolgate"
)

// Env is everything the checks read. It is built once per run and not
// modified by checks.
type Env struct {
	Config      *config.Config
	Credentials config.Credentials
	Runner      execx.Runner

	// Runtime is the resolved container runtime; RuntimeErr is set
	// instead when resolution failed.
	Runtime    *runtime.RuntimeInfo
	RuntimeErr error

	Dial ghserver.Dialer

	// Gate filters the diagnostic tool call; GateErr is set when the
	// configured policy could not be loaded.
	Gate    *toolgate.Gate
	GateErr error

	GoVersion string
	BuildInfo func() (*debug.BuildInfo, bool)
}

// NewEnv resolves the runtime and loads the tool policy for one run.
func NewEnv(ctx context.Context, cfg *config.Config, creds config.Credentials, r execx.Runner) *Env {
	env := &Env{
		Config:      cfg,
		Credentials: creds,
		Runner:      r,
		Dial:        ghserver.Dial,
		GoVersion:   goruntime.Version(),
		BuildInfo:   debug.ReadBuildInfo,
	}
	env.Runtime, env.RuntimeErr = runtime.Resolve(ctx, r, cfg.Runtime, cfg.Timeouts.Probe)
	env.Gate, env.GateErr = toolgate.New(ctx, cfg.Policy.ToolPolicy)
	return env
}

// Containers returns a client for the resolved runtime, or nil.
func (e *Env) Containers() *container.Client {
	if e.Runtime == nil {
		return nil
	}
	return container.NewClient(*e.Runtime, e.Runner)
}

// ServerCommand builds the server launch command for the resolved runtime.
func (e *Env) ServerCommand() (ghserver.Command, error) {
	return ghserver.NewCommand(e.Runtime.Path, e.Config, e.Credentials)
}
