package main

import (
	"context"
	"os"
	"testing"

	"dcollector/internal/config"
	"dcollector/internal/secrets"
	"dcollector/logmanager"
)

func newSecrets(t *testing.T, nutPassword string) *secrets.Manager {
	t.Helper()
	t.Setenv("NUT_PASSWORD_FILE", "")
	t.Setenv("NUT_PASSWORD", nutPassword)
	m := secrets.NewManager(logmanager.Discard())
	if err := m.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	return m
}

func TestCollectorConfigFollowsRotatedNUTPassword(t *testing.T) {
	m := newSecrets(t, "old")
	nut := collectorConfig(&config.Config{}, m).UPS.NUT

	if got := nut.Password(); got != "old" {
		t.Fatalf("password = %q, want old", got)
	}

	t.Setenv("NUT_PASSWORD", "new")
	if err := m.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := nut.Password(); got != "new" {
		t.Fatalf("dialer still sees %q after reload, want new", got)
	}
}

func TestReloadSecretsOnSignal(t *testing.T) {
	m := newSecrets(t, "before")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal)
	done := make(chan struct{})
	go func() {
		reloadSecretsOn(ctx, sig, m, logmanager.Discard())
		close(done)
	}()

	t.Setenv("NUT_PASSWORD", "after")
	sig <- os.Interrupt
	// the second send is only received once the first reload is done
	sig <- os.Interrupt
	cancel()
	<-done

	if got := m.NUTPassword(); got != "after" {
		t.Fatalf("password = %q after signal, want after", got)
	}
}
