package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func fileLogger(t *testing.T) (Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewLogger(&Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput, File: path})
	if err != nil {
		t.Fatal(err)
	}
	return log, path
}

func TestTimedOperationSuccess(t *testing.T) {
	log, path := fileLogger(t)

	ran := false
	if err := TimedOperation("reconcile", log, func() error {
		ran = true
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Fatal("wrapped function did not run")
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"operation=reconcile", "Starting operation", "status=success", "duration="} {
		if !strings.Contains(string(out), want) {
			t.Errorf("log output missing %q\n%s", want, out)
		}
	}
}

func TestTimedOperationError(t *testing.T) {
	log, path := fileLogger(t)

	opErr := errors.New("engine blew up")
	if err := TimedOperation("reconcile", log, func() error { return opErr }); err != opErr {
		t.Fatalf("TimedOperation should return the function's error, got %v", err)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"status=error", "engine blew up", "Operation failed"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("log output missing %q\n%s", want, out)
		}
	}
}
