package command

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestExecReturnsStdout(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	out, err := Exec{}.Run(context.Background(), t.TempDir(), "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Fatalf("Run() = %q, want hello", out)
	}
}

func TestExecIncludesStderrInError(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	_, err := Exec{}.Run(context.Background(), "", "sh", "-c", "echo broken >&2; exit 3")
	if err == nil {
		t.Fatalf("Run() error = nil, want error")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Fatalf("Run() error = %q, want stderr detail", err)
	}
}
