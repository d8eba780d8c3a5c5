package doctor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteMetrics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghmcp.prom")
	r := &Report{Results: []CheckResult{
		{Name: "go_version", Passed: true},
		{Name: "credential", Kind: KindCredentialMissing},
	}}

	if err := WriteMetrics(path, r); err != nil {
		t.Fatalf("WriteMetrics() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{
		`ghmcp_check_passed{check="credential",kind="CredentialMissing"} 0`,
		`ghmcp_check_passed{check="go_version"`,
		"ghmcp_checks_total 2",
		"ghmcp_checks_passed 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics missing %q:\n%s", want, out)
		}
	}
}

func TestWriteMetrics_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "ghmcp.prom")
	if err := WriteMetrics(path, &Report{}); err == nil {
		t.Error("expected error for unwritable path")
	}
}
