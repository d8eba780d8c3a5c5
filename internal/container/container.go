// Package container drives a resolved container runtime through its CLI.
// Every call is bounded by a timeout and goes through an execx.Runner.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ghmcp/ghmcp/internal/execx"
	"github.com/ghmcp/ghmcp/internal/runtime"
)

// Client issues commands to one container runtime.
type Client struct {
	Runtime runtime.RuntimeInfo
	Runner  execx.Runner
}

// NewClient returns a Client for the resolved runtime.
func NewClient(rt runtime.RuntimeInfo, r execx.Runner) *Client {
	return &Client{Runtime: rt, Runner: r}
}

// ImageStatus reports how an image became available.
type ImageStatus struct {
	Ref    string // reference as listed by the runtime
	Pulled bool   // true when it had to be pulled
}

// Ping checks that the runtime can reach its engine (daemon, VM or socket).
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	if _, err := c.run(ctx, timeout, "ps"); err != nil {
		return fmt.Errorf("%s engine not reachable: %w", c.Runtime.Name, err)
	}
	return nil
}

// RunProbe starts a throwaway container that echoes marker and reports
// whether the marker came back on stdout.
func (c *Client) RunProbe(ctx context.Context, timeout time.Duration, image, marker string) error {
	res, err := c.run(ctx, timeout, "run", "--rm", image, "echo", marker)
	if err != nil {
		return err
	}
	if !strings.Contains(res.Stdout, marker) {
		return fmt.Errorf("container ran but did not print %q (got %q)", marker, strings.TrimSpace(res.Stdout))
	}
	return nil
}

// LocalImage returns the first local reference matching image, or "" when
// the image is not cached.
func (c *Client) LocalImage(ctx context.Context, timeout time.Duration, image string) (string, error) {
	res, err := c.run(ctx, timeout, "images", image, "--format", "{{.Repository}}:{{.Tag}}")
	if err != nil {
		return "", err
	}
	return res.FirstLine(), nil
}

// Pull fetches image from its registry.
func (c *Client) Pull(ctx context.Context, timeout time.Duration, image string) error {
	slog.Info("pulling image", "image", image, "runtime", c.Runtime.Name)
	if _, err := c.run(ctx, timeout, "pull", image); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	return nil
}

// EnsureImage makes image available locally, pulling it if absent.
func (c *Client) EnsureImage(ctx context.Context, listTimeout, pullTimeout time.Duration, image string) (ImageStatus, error) {
	ref, err := c.LocalImage(ctx, listTimeout, image)
	if err == nil && ref != "" {
		slog.Debug("image already cached", "image", image, "ref", ref)
		return ImageStatus{Ref: ref}, nil
	}

	// Podman resolves unqualified short names against search registries;
	// a locally built image lives under localhost/.
	if candidate := normalizeImageRef(image, c.Runtime.Name); candidate != image {
		if ref, err := c.LocalImage(ctx, listTimeout, candidate); err == nil && ref != "" {
			slog.Debug("image found with localhost/ prefix", "original", image, "resolved", candidate)
			return ImageStatus{Ref: ref}, nil
		}
	}

	if err := c.Pull(ctx, pullTimeout, image); err != nil {
		return ImageStatus{}, err
	}
	return ImageStatus{Ref: image, Pulled: true}, nil
}

// FindByImage returns the id of the newest running container started from
// image, or "" when none is running.
func (c *Client) FindByImage(ctx context.Context, timeout time.Duration, image string) (string, error) {
	res, err := c.run(ctx, timeout, "ps", "-q", "--filter", "ancestor="+image)
	if err != nil {
		return "", fmt.Errorf("failed to query containers: %w", err)
	}
	return res.FirstLine(), nil
}

// normalizeImageRef adds the localhost/ prefix podman uses for unqualified
// local images. Other runtimes and qualified references are unchanged.
func normalizeImageRef(ref, runtimeName string) string {
	if runtimeName != "podman" || strings.Contains(ref, "/") {
		return ref
	}
	return "localhost/" + ref
}

func (c *Client) run(ctx context.Context, timeout time.Duration, args ...string) (execx.Result, error) {
	if c.Runner == nil {
		return execx.Result{}, errors.New("container client has no runner")
	}
	return c.Runner.Run(ctx, timeout, c.Runtime.Path, args...)
}
