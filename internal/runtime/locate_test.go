package runtime

import (
	"context"
	"testing"

	"github.com/ghmcp/ghmcp/internal/execx"
)

func TestLoginShellPaths(t *testing.T) {
	f := execx.NewFake().Install("bash").Install("sh").
		On("bash -l -c command -v docker", "/usr/local/bin/docker\n").
		On("sh -l -c command -v docker", "\n")

	got := LoginShellPaths(context.Background(), f, "docker", 0)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}

	want := []ShellPath{
		{Shell: "bash", Path: "/usr/local/bin/docker"},
		{Shell: "zsh", Error: "shell not installed"},
		{Shell: "sh", Error: "not found"},
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("result[%d] = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		path, home, want string
	}{
		{"~/.orbstack/bin/docker", "/home/dev", "/home/dev/.orbstack/bin/docker"},
		{"/usr/bin/docker", "/home/dev", "/usr/bin/docker"},
		{"~/.rd/bin/nerdctl", "", "~/.rd/bin/nerdctl"},
	}
	for _, tt := range tests {
		if got := expandHome(tt.path, tt.home); got != tt.want {
			t.Errorf("expandHome(%q, %q) = %q, want %q", tt.path, tt.home, got, tt.want)
		}
	}
}

func TestLocate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	f := execx.NewFake()

	locs := Locate(context.Background(), f, 0)
	if len(locs) != len(knownLocations) {
		t.Fatalf("got %d locations, want %d", len(locs), len(knownLocations))
	}
	for _, l := range locs {
		if l.Path == "" {
			t.Error("location with empty path")
		}
		if !l.Exists && (l.Executable || l.Version != "") {
			t.Errorf("%s: missing file reported as executable", l.Path)
		}
	}
}
