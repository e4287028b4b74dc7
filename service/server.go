package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dcollector/logmanager"
)

// Serve runs an HTTP server on addr until ctx is done, then shuts it
// down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *logmanager.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting metrics server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Metrics server shutdown error: %v", err)
		return err
	}
	return <-errCh
}
