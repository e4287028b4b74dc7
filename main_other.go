//go:build !unix

package main

import (
	"context"

	"dcollector/internal/secrets"
	"dcollector/logmanager"
)

// reloadOnHangup is a no-op where SIGHUP does not exist; secret files
// are still watched.
func reloadOnHangup(ctx context.Context, secretsMgr *secrets.Manager, logger *logmanager.Logger) {}
