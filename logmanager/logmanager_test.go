package logmanager

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManagerWritesToStdoutAndFile(t *testing.T) {
	var stdout bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "dcollector.log")

	mgr, err := New(Options{FilePath: path, EnableFile: true, Stdout: &stdout})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mgr.Logger().Infof("iteration %d successful", 3)
	if err := mgr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !strings.Contains(stdout.String(), "INFO iteration 3 successful") {
		t.Fatalf("stdout missing line: %q", stdout.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "INFO iteration 3 successful") {
		t.Fatalf("log file missing line: %q", data)
	}
}

func TestDebugIsGated(t *testing.T) {
	var out bytes.Buffer
	mgr, err := New(Options{Stdout: &out})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mgr.Logger().Debugf("hidden")
	if out.Len() != 0 {
		t.Fatalf("debug line written without Debug: %q", out.String())
	}

	mgr, err = New(Options{Stdout: &out, Debug: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mgr.Logger().Debugf("shown")
	if !strings.Contains(out.String(), "DEBUG shown") {
		t.Fatalf("debug line missing: %q", out.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Infof("no panic")
	l.Errorf("no panic %v", 1)
	if l.Standard() != nil {
		t.Fatal("nil logger should return nil standard logger")
	}
}
