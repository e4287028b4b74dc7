// Package service runs the collect/persist polling loop.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"dcollector/internal/report"
	"dcollector/internal/sample"
	"dcollector/internal/store"
	"dcollector/logmanager"
	"dcollector/metrics"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultBackoff  = 5 * time.Second
)

// Store is the subset of *store.Store the loop drives.
type Store interface {
	report.Reader
	Persist(ctx context.Context, snap sample.Snapshot) error
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*store.Store)(nil)

// Connector opens a new Store. It is called again after every
// connection or write failure.
type Connector func(ctx context.Context) (Store, error)

type Collector interface {
	Collect(ctx context.Context) sample.Snapshot
}

type Reporter interface {
	ReportAll(ctx context.Context, reader report.Reader, count int) int
}

type Options struct {
	Interval    time.Duration
	Backoff     time.Duration
	ReportCount int
	Logger      *logmanager.Logger
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Status is a point-in-time view of the loop for the status endpoint.
type Status struct {
	State       string    `json:"state"`
	Iterations  uint64    `json:"iterations"`
	Failures    uint64    `json:"failures"`
	Connected   bool      `json:"connected"`
	LastSuccess time.Time `json:"last_success"`
	LastError   string    `json:"last_error,omitempty"`
	Interval    string    `json:"interval"`
	ReportCount int       `json:"report_count"`
}

// PanicError wraps a panic recovered from one iteration.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("iteration panicked: %v", e.Value)
}

type Loop struct {
	connect   Connector
	collector Collector
	reporter  Reporter
	logger    *logmanager.Logger
	backoff   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time

	interval    atomic.Int64
	reportCount atomic.Int64
	state       atomic.Int32

	// store is only touched by the goroutine running the loop.
	store Store

	mu          sync.Mutex
	iterations  uint64
	failures    uint64
	connected   bool
	lastSuccess time.Time
	lastError   string
}

func New(connect Connector, collector Collector, reporter Reporter, opts Options) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := &Loop{
		connect:   connect,
		collector: collector,
		reporter:  reporter,
		logger:    opts.Logger,
		backoff:   opts.Backoff,
		sleep:     opts.Sleep,
		now:       opts.Now,
	}
	l.interval.Store(int64(opts.Interval))
	l.reportCount.Store(int64(opts.ReportCount))
	l.setState(StateConnecting)
	return l
}

// SetInterval changes the pause between iterations. It takes effect at
// the next sleep.
func (l *Loop) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	l.interval.Store(int64(d))
}

// SetReportCount changes how many rows per kind are read back after each
// committed iteration. Zero disables the report.
func (l *Loop) SetReportCount(n int) {
	if n < 0 {
		n = 0
	}
	l.reportCount.Store(int64(n))
}

func (l *Loop) Interval() time.Duration {
	return time.Duration(l.interval.Load())
}

// Run polls until ctx is cancelled. Infrastructure failures are retried
// forever; the returned error is always nil.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown()

	for ctx.Err() == nil {
		if !l.ensureConnected(ctx) {
			if l.sleep(ctx, l.backoff) != nil {
				return nil
			}
			continue
		}

		err := l.iterate(ctx)
		if ctx.Err() != nil {
			return nil
		}

		wait := l.Interval()
		if err != nil {
			l.recordFailure(err)
			if store.IsWrite(err) || store.IsConnection(err) {
				l.logger.Errorf("iteration failed, reconnecting in %s: %v", l.backoff, err)
				l.dropStore()
				wait = l.backoff
			} else {
				l.logger.Errorf("iteration failed: %v", err)
			}
		}

		l.setState(StateSleeping)
		if l.sleep(ctx, wait) != nil {
			return nil
		}
	}
	return nil
}

// RunOnce performs a single connect, collect, persist and report pass.
func (l *Loop) RunOnce(ctx context.Context) error {
	defer l.shutdown()

	l.setState(StateConnecting)
	st, err := l.connect(ctx)
	if err != nil {
		l.recordFailure(err)
		return err
	}
	l.store = st
	l.setConnected(true)

	if err := l.iterate(ctx); err != nil {
		l.recordFailure(err)
		return err
	}
	return nil
}

// ensureConnected returns true once a live store is held.
func (l *Loop) ensureConnected(ctx context.Context) bool {
	if l.store != nil {
		err := l.store.Ping(ctx)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		l.logger.Warnf("database ping failed, reconnecting: %v", err)
		metrics.IterationFailures.WithLabelValues("ping").Inc()
		l.dropStore()
	}

	l.setState(StateConnecting)
	st, err := l.connect(ctx)
	if err != nil {
		if ctx.Err() == nil {
			l.recordFailure(err)
			l.logger.Errorf("failed to connect to database, retrying in %s: %v", l.backoff, err)
		}
		return false
	}
	l.logger.Infof("connected to database")
	l.store = st
	l.setConnected(true)
	return true
}

func (l *Loop) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("recovered from panic: %v\n%s", r, debug.Stack())
			err = &PanicError{Value: r}
		}
	}()

	l.setState(StateCollecting)
	collected := l.collector.Collect(ctx)
	kept := sample.Filter(collected)
	for kind, n := range sample.Dropped(collected, kept) {
		if n > 0 {
			metrics.SamplesDropped.WithLabelValues(kind.String()).Add(float64(n))
			l.logger.Debugf("skipped %d empty %s samples", n, kind)
		}
	}

	l.setState(StatePersisting)
	started := l.now()
	if err := l.store.Persist(ctx, kept); err != nil {
		return err
	}
	metrics.PersistDuration.Observe(l.now().Sub(started).Seconds())

	counts := kept.Counts()
	for kind, n := range counts {
		metrics.RowsWritten.WithLabelValues(kind.Table()).Add(float64(n))
	}
	metrics.ObserveSnapshot(kept)
	l.recordSuccess()
	l.logger.Infof("stored sys_stats=%d ups_stats=%d proc_stats=%d disk_stats=%d",
		counts[sample.KindSystem], counts[sample.KindUPS], counts[sample.KindProcess], counts[sample.KindDisk])

	l.report(ctx)
	return nil
}

// report prints the newest rows. The iteration is already committed, so
// a panic here is logged and does not fail it.
func (l *Loop) report(ctx context.Context) {
	n := int(l.reportCount.Load())
	if n <= 0 || l.reporter == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("recovered from panic in report: %v\n%s", r, debug.Stack())
		}
	}()
	l.reporter.ReportAll(ctx, l.store, n)
}

func (l *Loop) dropStore() {
	if l.store == nil {
		return
	}
	if err := l.store.Close(); err != nil {
		l.logger.Warnf("closing database connection: %v", err)
	}
	l.store = nil
	l.setConnected(false)
}

func (l *Loop) shutdown() {
	l.setState(StateShuttingDown)
	l.dropStore()
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
	for _, other := range states {
		value := 0.0
		if other == s {
			value = 1
		}
		metrics.LoopState.WithLabelValues(other.String()).Set(value)
	}
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setConnected(v bool) {
	l.mu.Lock()
	l.connected = v
	l.mu.Unlock()
}

func (l *Loop) recordSuccess() {
	now := l.now()
	metrics.IterationsTotal.Inc()
	metrics.LastSuccess.Set(float64(now.Unix()))

	l.mu.Lock()
	l.iterations++
	l.lastSuccess = now
	l.lastError = ""
	l.mu.Unlock()
}

func (l *Loop) recordFailure(err error) {
	metrics.IterationFailures.WithLabelValues(failureReason(err)).Inc()

	l.mu.Lock()
	l.failures++
	l.lastError = err.Error()
	l.mu.Unlock()
}

func failureReason(err error) string {
	var pe *PanicError
	switch {
	case errors.As(err, &pe):
		return "panic"
	case store.IsConnection(err):
		return "connect"
	case store.IsWrite(err):
		return "write"
	default:
		return "other"
	}
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Status{
		State:       l.State().String(),
		Iterations:  l.iterations,
		Failures:    l.failures,
		Connected:   l.connected,
		LastSuccess: l.lastSuccess,
		LastError:   l.lastError,
		Interval:    l.Interval().String(),
		ReportCount: int(l.reportCount.Load()),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
