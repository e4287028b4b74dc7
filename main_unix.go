//go:build unix

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"dcollector/internal/secrets"
	"dcollector/logmanager"
)

func reloadOnHangup(ctx context.Context, secretsMgr *secrets.Manager, logger *logmanager.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	reloadSecretsOn(ctx, hup, secretsMgr, logger)
}
