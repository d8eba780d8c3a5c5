// Package execx runs short-lived external commands with a bounded timeout
// and captures their output. Every probe the tool makes against a container
// runtime goes through a Runner so it can be replaced in tests.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Result is the captured outcome of a command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// FirstLine returns the first non-empty line of stdout.
func (r Result) FirstLine() string {
	for _, line := range strings.Split(r.Stdout, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// ErrTimeout is returned when a command exceeds its deadline.
var ErrTimeout = errors.New("command timed out")

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Runner executes external commands.
type Runner interface {
	// Run executes name with args and waits at most timeout. A non-zero
	// exit is reported as *ExitError together with the captured Result.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error)

	// LookPath resolves name to an executable path.
	LookPath(name string) (string, error)
}

// OS runs real processes via os/exec.
type OS struct{}

// Run implements Runner.
func (OS) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	slog.Debug("ran command", "name", name, "args", args, "duration", time.Since(start), "error", err)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w after %s", name, ErrTimeout, timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitError{Name: name, Code: res.ExitCode, Stderr: res.Stderr}
		}
		res.ExitCode = -1
		return res, err
	}
	return res, nil
}

// LookPath implements Runner.
func (OS) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Attach runs name in the foreground with this process's stdin, stdout and
// stderr. Cancelling ctx interrupts the child and gives it grace to exit
// before it is killed.
func Attach(ctx context.Context, grace time.Duration, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = grace

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Name: name, Code: exitErr.ExitCode()}
	}
	return err
}
