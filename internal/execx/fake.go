package execx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Fake is a scripted Runner for tests. Responses are keyed by the full
// command line ("docker ps"); a key ending in " *" matches any arguments
// after that prefix. Commands with no response fail as if not installed.
type Fake struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	paths     map[string]string
	calls     []string
}

// FakeResponse is the scripted outcome of one command line.
type FakeResponse struct {
	Result Result
	Err    error
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{
		responses: make(map[string]FakeResponse),
		paths:     make(map[string]string),
	}
}

// Install registers name as present on PATH at /usr/bin/<name>.
func (f *Fake) Install(name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[name] = "/usr/bin/" + name
	return f
}

// On scripts a successful command with the given stdout.
func (f *Fake) On(cmdline, stdout string) *Fake {
	return f.Respond(cmdline, FakeResponse{Result: Result{Stdout: stdout}})
}

// Fail scripts a command that exits with code and stderr.
func (f *Fake) Fail(cmdline string, code int, stderr string) *Fake {
	name := strings.Fields(cmdline)[0]
	return f.Respond(cmdline, FakeResponse{
		Result: Result{ExitCode: code, Stderr: stderr},
		Err:    &ExitError{Name: name, Code: code, Stderr: stderr},
	})
}

// Respond scripts an arbitrary response.
func (f *Fake) Respond(cmdline string, resp FakeResponse) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdline] = resp
	return f
}

// Calls returns every command line run so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, _ time.Duration, name string, args ...string) (Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, line)

	if resp, ok := f.responses[line]; ok {
		return resp.Result, resp.Err
	}
	// Longest wildcard prefix wins.
	best := ""
	for key := range f.responses {
		if prefix, ok := strings.CutSuffix(key, " *"); ok && strings.HasPrefix(line, prefix) && len(key) > len(best) {
			best = key
		}
	}
	if best != "" {
		resp := f.responses[best]
		return resp.Result, resp.Err
	}
	return Result{ExitCode: -1}, fmt.Errorf("exec: %q: %w", name, exec.ErrNotFound)
}

// LookPath implements Runner.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}
