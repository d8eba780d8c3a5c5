package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ghmcp/ghmcp/internal/execx"
)

// Resolve finds the container runtime to use.
//
// With a preferred name only that runtime is probed and a failure is
// reported as *UnavailableError; there is no fallback. Without one, each of
// Candidates is probed in order and the first that answers wins. When none
// answers, the error matches ErrNotFound. Results are never cached.
func Resolve(ctx context.Context, r execx.Runner, preferred string, timeout time.Duration) (*RuntimeInfo, error) {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	if preferred != "" {
		info, err := probe(ctx, r, preferred, timeout)
		if err != nil {
			slog.Debug("preferred runtime unavailable", "name", preferred, "error", err)
			return nil, &UnavailableError{Name: preferred, Err: err}
		}
		slog.Debug("resolved container runtime", "name", info.Name, "path", info.Path, "version", info.Version)
		return info, nil
	}

	for _, name := range Candidates {
		info, err := probe(ctx, r, name, timeout)
		if err != nil {
			slog.Debug("runtime probe failed", "name", name, "error", err)
			continue
		}
		slog.Debug("resolved container runtime", "name", info.Name, "path", info.Path, "version", info.Version)
		return info, nil
	}

	return nil, &NotFoundError{Tried: Candidates}
}

func probe(ctx context.Context, r execx.Runner, name string, timeout time.Duration) (*RuntimeInfo, error) {
	path, err := r.LookPath(name)
	if err != nil {
		return nil, err
	}

	res, err := r.Run(ctx, timeout, path, "--version")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("%s --version exited with status %d", name, res.ExitCode)
	}

	return &RuntimeInfo{
		Name:    name,
		Path:    path,
		Version: res.FirstLine(),
	}, nil
}
