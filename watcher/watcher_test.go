package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dcollector/logmanager"
)

func TestWatchReportsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dcollector.yaml")
	if err := os.WriteFile(path, []byte("poll:\n  interval: 10s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	if err := Watch(ctx, path, func() { changed <- struct{}{} }, logmanager.Discard()); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("poll:\n  interval: 20s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatchMissingFileWatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	if err := Watch(ctx, path, func() { changed <- struct{}{} }, logmanager.Discard()); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("s3cret"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no notification for file created in watched directory")
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "secret")
	if err := Watch(context.Background(), path, func() {}, logmanager.Discard()); err == nil {
		t.Fatal("expected error when neither file nor directory exists")
	}
}
