// Package report prints recently stored samples.
package report

import (
	"context"
	"fmt"
	"io"

	"dcollector/internal/sample"
	"dcollector/logmanager"
)

// Reader is the read side of the store.
type Reader interface {
	Recent(ctx context.Context, kind sample.Kind, count int) ([]sample.Record, error)
}

type Reporter struct {
	out    io.Writer
	logger *logmanager.Logger
}

func New(out io.Writer, logger *logmanager.Logger) *Reporter {
	return &Reporter{out: out, logger: logger}
}

// Report writes the newest count rows of kind, one line each. Read
// failures are logged and otherwise ignored.
func (r *Reporter) Report(ctx context.Context, reader Reader, kind sample.Kind, count int) int {
	if count <= 0 {
		return 0
	}
	records, err := reader.Recent(ctx, kind, count)
	if err != nil {
		r.logger.Errorf("failed to read back %s: %v", kind.Table(), err)
		return 0
	}
	for _, rec := range records {
		if _, err := fmt.Fprintf(r.out, "[%s] %s\n", kind.Table(), rec); err != nil {
			r.logger.Warnf("failed to write report: %v", err)
			return 0
		}
	}
	return len(records)
}

// ReportAll reports every kind in persistence order and returns the
// number of lines written.
func (r *Reporter) ReportAll(ctx context.Context, reader Reader, count int) int {
	var total int
	for _, kind := range sample.Kinds {
		total += r.Report(ctx, reader, kind, count)
	}
	return total
}
