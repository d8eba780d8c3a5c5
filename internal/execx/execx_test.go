package execx

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"
)

func TestResult_FirstLine(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{"single", "Docker version 27.0.3\n", "Docker version 27.0.3"},
		{"leading blank", "\n\n  podman version 5.0.0\nextra\n", "podman version 5.0.0"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Result{Stdout: tt.stdout}).FirstLine(); got != tt.want {
				t.Errorf("FirstLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOS_RunSuccessAndExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	res, err := OS{}.Run(context.Background(), 5*time.Second, "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FirstLine() != "hello" {
		t.Errorf("stdout = %q, want hello", res.Stdout)
	}

	res, err = OS{}.Run(context.Background(), 5*time.Second, "sh", "-c", "echo oops >&2; exit 3")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.Code != 3 || res.ExitCode != 3 {
		t.Errorf("exit code = %d/%d, want 3", exitErr.Code, res.ExitCode)
	}
	if exitErr.Stderr != "oops\n" {
		t.Errorf("stderr = %q", exitErr.Stderr)
	}
}

func TestOS_RunTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	_, err := OS{}.Run(context.Background(), 50*time.Millisecond, "sleep", "5")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestOS_RunMissingBinary(t *testing.T) {
	_, err := OS{}.Run(context.Background(), time.Second, "definitely-not-a-real-binary-ghmcp")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("expected exec.ErrNotFound, got %v", err)
	}
}

func TestFake(t *testing.T) {
	f := NewFake().Install("docker").
		On("docker --version", "Docker version 27.0.3\n").
		On("docker run *", "generic").
		On("docker run --rm alpine *", "specific").
		Fail("docker ps", 1, "cannot connect")

	if p, err := f.LookPath("docker"); err != nil || p != "/usr/bin/docker" {
		t.Errorf("LookPath(docker) = %q, %v", p, err)
	}
	if _, err := f.LookPath("podman"); err == nil {
		t.Error("LookPath(podman) should fail")
	}

	ctx := context.Background()
	res, err := f.Run(ctx, 0, "docker", "--version")
	if err != nil || res.FirstLine() != "Docker version 27.0.3" {
		t.Errorf("docker --version = %q, %v", res.Stdout, err)
	}

	res, _ = f.Run(ctx, 0, "docker", "run", "--rm", "alpine", "echo", "hi")
	if res.Stdout != "specific" {
		t.Errorf("longest wildcard should win, got %q", res.Stdout)
	}

	_, err = f.Run(ctx, 0, "docker", "ps")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 1 {
		t.Errorf("docker ps error = %v", err)
	}

	if _, err := f.Run(ctx, 0, "nerdctl", "--version"); !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("unscripted command error = %v", err)
	}

	if got := len(f.Calls()); got != 4 {
		t.Errorf("Calls() len = %d, want 4", got)
	}
}

func TestAttach(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	if err := Attach(context.Background(), time.Second, "sh", "-c", "exit 0"); err != nil {
		t.Errorf("Attach() error: %v", err)
	}

	err := Attach(context.Background(), time.Second, "sh", "-c", "exit 4")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 4 {
		t.Errorf("Attach() error = %v, want exit status 4", err)
	}
}
