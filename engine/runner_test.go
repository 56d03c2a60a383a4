package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestOSRunnerRun(t *testing.T) {
	out, err := OSRunner{}.Run(context.Background(), []string{"sh", "-c", "echo hello"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(out) != "hello" {
		t.Fatalf("out = %q", out)
	}
}

func TestOSRunnerRunFailure(t *testing.T) {
	out, err := OSRunner{}.Run(context.Background(), []string{"sh", "-c", "echo oops >&2; exit 3"})
	if err == nil {
		t.Fatalf("want error")
	}
	if !strings.Contains(out, "oops") {
		t.Fatalf("stderr must be captured: %q", out)
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Fatalf("error must carry the output: %v", err)
	}
}

func TestOSRunnerRunEmptyArgv(t *testing.T) {
	if _, err := (OSRunner{}).Run(context.Background(), nil); err == nil {
		t.Fatalf("empty argv must error")
	}
}

func TestOSRunnerStart(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "out.log")
	proc, err := OSRunner{}.Start(context.Background(), []string{"sh", "-c", "echo started; sleep 5"}, logPath)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer proc.Kill()

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, _ := os.ReadFile(logPath)
		if strings.Contains(string(data), "started") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("log never appeared, contents: %q", data)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err := proc.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}
}
