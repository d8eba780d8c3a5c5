package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/ghmcp/ghmcp/internal/execx"
)

func TestNotFoundError(t *testing.T) {
	err := ErrNotFound
	if err.Error() == "" {
		t.Error("NotFoundError.Error() should not be empty")
	}

	// Should be identifiable as a NotFoundError.
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Error("ErrNotFound should be identifiable via errors.As as *NotFoundError")
	}
	if !errors.Is(&NotFoundError{Tried: []string{"docker"}}, ErrNotFound) {
		t.Error("any *NotFoundError should match ErrNotFound")
	}
}

func TestRuntimeInfo_String(t *testing.T) {
	info := RuntimeInfo{Name: "podman", Path: "/usr/bin/podman", Version: "podman version 5.0.0"}
	if got, want := info.String(), "podman (podman version 5.0.0)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (RuntimeInfo{Name: "docker"}).String(); got != "docker" {
		t.Errorf("String() without version = %q", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		fake      func() *execx.Fake
		preferred string
		wantName  string
		wantErr   func(error) bool
	}{
		{
			name: "docker first when all present",
			fake: func() *execx.Fake {
				return execx.NewFake().Install("docker").Install("podman").
					On("/usr/bin/docker --version", "Docker version 27.0.3\n").
					On("/usr/bin/podman --version", "podman version 5.0.0\n")
			},
			wantName: "docker",
		},
		{
			name: "falls through to podman when docker probe fails",
			fake: func() *execx.Fake {
				return execx.NewFake().Install("docker").Install("podman").
					Fail("/usr/bin/docker --version", 1, "broken").
					On("/usr/bin/podman --version", "podman version 5.0.0\n")
			},
			wantName: "podman",
		},
		{
			name: "nerdctl last",
			fake: func() *execx.Fake {
				return execx.NewFake().Install("nerdctl").
					On("/usr/bin/nerdctl --version", "nerdctl version 1.7.0\n")
			},
			wantName: "nerdctl",
		},
		{
			name:    "nothing installed",
			fake:    execx.NewFake,
			wantErr: func(err error) bool { return errors.Is(err, ErrNotFound) },
		},
		{
			name: "timeout is a probe failure",
			fake: func() *execx.Fake {
				return execx.NewFake().Install("docker").
					Respond("/usr/bin/docker --version", execx.FakeResponse{Err: execx.ErrTimeout})
			},
			wantErr: func(err error) bool { return errors.Is(err, ErrNotFound) },
		},
		{
			name: "preferred podman with only docker present does not fall back",
			fake: func() *execx.Fake {
				return execx.NewFake().Install("docker").
					On("/usr/bin/docker --version", "Docker version 27.0.3\n")
			},
			preferred: "podman",
			wantErr: func(err error) bool {
				var ue *UnavailableError
				return errors.As(err, &ue) && ue.Name == "podman" && !errors.Is(err, ErrNotFound)
			},
		},
		{
			name: "preferred podman present",
			fake: func() *execx.Fake {
				return execx.NewFake().Install("docker").Install("podman").
					On("/usr/bin/docker --version", "Docker version 27.0.3\n").
					On("/usr/bin/podman --version", "podman version 5.0.0\n")
			},
			preferred: "podman",
			wantName:  "podman",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Resolve(context.Background(), tt.fake(), tt.preferred, 0)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("Resolve() = %+v, want error", info)
				}
				if !tt.wantErr(err) {
					t.Fatalf("Resolve() error = %v (%T), unexpected", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if info.Name != tt.wantName {
				t.Errorf("Resolve().Name = %q, want %q", info.Name, tt.wantName)
			}
			if info.Path == "" || info.Version == "" {
				t.Errorf("Resolve() should fill Path and Version, got %+v", info)
			}
		})
	}
}

func TestResolve_ProbesEveryCall(t *testing.T) {
	f := execx.NewFake().Install("docker").On("/usr/bin/docker --version", "Docker version 27.0.3\n")

	for i := 0; i < 2; i++ {
		if _, err := Resolve(context.Background(), f, "", 0); err != nil {
			t.Fatalf("Resolve() #%d: %v", i, err)
		}
	}
	if got := len(f.Calls()); got != 2 {
		t.Errorf("expected one probe per call, got %d calls", got)
	}
}

func TestIsCandidate(t *testing.T) {
	for _, name := range []string{"docker", "podman", "nerdctl"} {
		if !IsCandidate(name) {
			t.Errorf("IsCandidate(%q) = false", name)
		}
	}
	if IsCandidate("lxc") {
		t.Error("IsCandidate(lxc) = true")
	}
}
