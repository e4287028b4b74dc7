package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dcollector/internal/report"
	"dcollector/internal/sample"
	"dcollector/internal/store"
	"dcollector/logmanager"
	"dcollector/metrics"
)

type fakeStore struct {
	mu        sync.Mutex
	persisted []sample.Snapshot
	failures  []error
	pingErr   error
	closed    int
}

func (f *fakeStore) Persist(_ context.Context, snap sample.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return err
		}
	}
	f.persisted = append(f.persisted, snap)
	return nil
}

func (f *fakeStore) Recent(context.Context, sample.Kind, int) ([]sample.Record, error) {
	return nil, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func (f *fakeStore) Close() error {
	f.closed++
	return nil
}

type scriptedConnector struct {
	errs     []error
	store    *fakeStore
	attempts int
}

func (c *scriptedConnector) connect(context.Context) (Store, error) {
	c.attempts++
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return nil, err
	}
	return c.store, nil
}

type countingCollector struct {
	calls  int
	panics map[int]bool
	snap   sample.Snapshot
}

func (c *countingCollector) Collect(context.Context) sample.Snapshot {
	c.calls++
	if c.panics[c.calls] {
		panic("sensor exploded")
	}
	return c.snap
}

type recordingReporter struct {
	counts []int
}

func (r *recordingReporter) ReportAll(_ context.Context, _ report.Reader, count int) int {
	r.counts = append(r.counts, count)
	return 0
}

// sleeper records every requested pause and cancels the loop after
// stopAfter of them.
type sleeper struct {
	cancel    context.CancelFunc
	stopAfter int
	slept     []time.Duration
}

func (s *sleeper) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	if len(s.slept) >= s.stopAfter {
		s.cancel()
		return context.Canceled
	}
	return ctx.Err()
}

func liveSnapshot() sample.Snapshot {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return sample.Snapshot{
		System:    &sample.SystemSample{Time: ts, CPUUsage: sample.Ptr(42.5)},
		UPS:       &sample.UpsSample{Time: ts},
		Processes: []sample.ProcessSample{{Time: ts, Name: sample.Ptr("init")}, {Time: ts}},
	}
}

func newTestLoop(t *testing.T, conn *scriptedConnector, coll Collector, rep Reporter, stopAfter int) (*Loop, *sleeper, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sl := &sleeper{cancel: cancel, stopAfter: stopAfter}
	loop := New(conn.connect, coll, rep, Options{
		Interval: 10 * time.Second,
		Backoff:  5 * time.Second,
		Logger:   logmanager.Discard(),
		Sleep:    sl.sleep,
	})
	return loop, sl, ctx
}

func TestRunRetriesConnectionWithBackoff(t *testing.T) {
	st := &fakeStore{}
	conn := &scriptedConnector{
		errs:  []error{&store.ConnectionError{Err: errors.New("refused")}, &store.ConnectionError{Err: errors.New("refused")}},
		store: st,
	}
	coll := &countingCollector{snap: liveSnapshot()}
	loop, sl, ctx := newTestLoop(t, conn, coll, nil, 3)

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []time.Duration{5 * time.Second, 5 * time.Second, 10 * time.Second}
	if len(sl.slept) != len(want) {
		t.Fatalf("slept %v, want %v", sl.slept, want)
	}
	for i := range want {
		if sl.slept[i] != want[i] {
			t.Fatalf("slept %v, want %v", sl.slept, want)
		}
	}
	if conn.attempts != 3 {
		t.Errorf("connect attempts = %d, want 3", conn.attempts)
	}
	if len(st.persisted) != 1 {
		t.Fatalf("persisted %d snapshots, want 1", len(st.persisted))
	}
	if st.closed != 1 {
		t.Errorf("store closed %d times on shutdown, want 1", st.closed)
	}
	if loop.State() != StateShuttingDown {
		t.Errorf("final state = %s", loop.State())
	}
}

func TestRunFiltersEmptySamples(t *testing.T) {
	st := &fakeStore{}
	conn := &scriptedConnector{store: st}
	coll := &countingCollector{snap: liveSnapshot()}
	loop, _, ctx := newTestLoop(t, conn, coll, nil, 1)

	before := testutil.ToFloat64(metrics.SamplesDropped.WithLabelValues("ups"))
	loop.Run(ctx)

	if len(st.persisted) != 1 {
		t.Fatalf("persisted %d snapshots", len(st.persisted))
	}
	got := st.persisted[0]
	if got.System == nil || *got.System.CPUUsage != 42.5 {
		t.Error("system sample with only cpu usage should be kept")
	}
	if got.UPS != nil {
		t.Error("empty UPS sample should be dropped")
	}
	if len(got.Processes) != 1 {
		t.Errorf("kept %d processes, want 1", len(got.Processes))
	}
	if after := testutil.ToFloat64(metrics.SamplesDropped.WithLabelValues("ups")); after-before != 1 {
		t.Errorf("dropped ups counter moved by %v, want 1", after-before)
	}
}

func TestRunContinuesAfterWriteError(t *testing.T) {
	st := &fakeStore{failures: []error{&store.WriteError{Table: "proc_stats", Err: errors.New("disk full")}}}
	conn := &scriptedConnector{store: st}
	coll := &countingCollector{snap: liveSnapshot()}
	loop, sl, ctx := newTestLoop(t, conn, coll, nil, 2)

	loop.Run(ctx)

	if coll.calls != 2 {
		t.Fatalf("collector called %d times, want 2", coll.calls)
	}
	if len(st.persisted) != 1 {
		t.Errorf("persisted %d snapshots after recovery, want 1", len(st.persisted))
	}
	if conn.attempts != 2 {
		t.Errorf("write failure should force a reconnect, got %d connects", conn.attempts)
	}
	if sl.slept[0] != 5*time.Second {
		t.Errorf("write failure should wait the backoff, slept %s", sl.slept[0])
	}
	status := loop.Status()
	if status.Iterations != 1 || status.Failures != 1 {
		t.Errorf("status = %+v", status)
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	st := &fakeStore{}
	conn := &scriptedConnector{store: st}
	coll := &countingCollector{snap: liveSnapshot(), panics: map[int]bool{1: true}}
	loop, sl, ctx := newTestLoop(t, conn, coll, nil, 2)

	before := testutil.ToFloat64(metrics.IterationFailures.WithLabelValues("panic"))
	loop.Run(ctx)

	if coll.calls != 2 || len(st.persisted) != 1 {
		t.Fatalf("calls=%d persisted=%d, want 2 and 1", coll.calls, len(st.persisted))
	}
	if sl.slept[0] != 10*time.Second {
		t.Errorf("panic should sleep the normal interval, slept %s", sl.slept[0])
	}
	if conn.attempts != 1 {
		t.Errorf("panic should keep the connection, got %d connects", conn.attempts)
	}
	if after := testutil.ToFloat64(metrics.IterationFailures.WithLabelValues("panic")); after-before != 1 {
		t.Errorf("panic failures moved by %v, want 1", after-before)
	}
}

func TestRunReconnectsAfterFailedPing(t *testing.T) {
	st := &fakeStore{}
	conn := &scriptedConnector{store: st}
	coll := &countingCollector{snap: liveSnapshot()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sleeps := 0
	loop := New(conn.connect, coll, nil, Options{
		Logger: logmanager.Discard(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			sleeps++
			switch sleeps {
			case 1:
				st.pingErr = errors.New("connection reset")
			case 2:
				cancel()
				return context.Canceled
			}
			return nil
		},
	})
	loop.Run(ctx)

	if conn.attempts < 2 {
		t.Fatalf("expected a reconnect after the failed ping, got %d connects", conn.attempts)
	}
	if st.closed < 1 {
		t.Error("store with failed ping should be closed")
	}
}

func TestRunReportsAfterCommit(t *testing.T) {
	st := &fakeStore{}
	conn := &scriptedConnector{store: st}
	rep := &recordingReporter{}
	loop, _, ctx := newTestLoop(t, conn, &countingCollector{snap: liveSnapshot()}, rep, 2)
	loop.SetReportCount(3)

	loop.Run(ctx)

	if len(rep.counts) != 2 || rep.counts[0] != 3 {
		t.Fatalf("report calls = %v, want two calls with 3", rep.counts)
	}
}

type panickingReporter struct{}

func (panickingReporter) ReportAll(context.Context, report.Reader, int) int {
	panic("terminal gone")
}

func TestReportPanicDoesNotFailCommittedIteration(t *testing.T) {
	st := &fakeStore{}
	conn := &scriptedConnector{store: st}
	loop, sl, ctx := newTestLoop(t, conn, &countingCollector{snap: liveSnapshot()}, panickingReporter{}, 1)
	loop.SetReportCount(1)

	iterations := testutil.ToFloat64(metrics.IterationsTotal)
	panics := testutil.ToFloat64(metrics.IterationFailures.WithLabelValues("panic"))
	loop.Run(ctx)

	if len(st.persisted) != 1 {
		t.Fatalf("persisted %d snapshots, want 1", len(st.persisted))
	}
	status := loop.Status()
	if status.Iterations != 1 || status.Failures != 0 || status.LastError != "" {
		t.Errorf("status = %+v, want one success and no failures", status)
	}
	if got := testutil.ToFloat64(metrics.IterationsTotal) - iterations; got != 1 {
		t.Errorf("iterations moved by %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.IterationFailures.WithLabelValues("panic")) - panics; got != 0 {
		t.Errorf("panic failures moved by %v, want 0", got)
	}
	if sl.slept[0] != 10*time.Second {
		t.Errorf("slept %s, want the normal interval", sl.slept[0])
	}
	if conn.attempts != 1 {
		t.Errorf("report panic should keep the connection, got %d connects", conn.attempts)
	}
}

func TestRunOnce(t *testing.T) {
	st := &fakeStore{}
	rep := &recordingReporter{}
	loop := New((&scriptedConnector{store: st}).connect, &countingCollector{snap: liveSnapshot()}, rep,
		Options{ReportCount: 1, Logger: logmanager.Discard()})

	if err := loop.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(st.persisted) != 1 || st.closed != 1 || len(rep.counts) != 1 {
		t.Fatalf("persisted=%d closed=%d reports=%d", len(st.persisted), st.closed, len(rep.counts))
	}

	failing := New((&scriptedConnector{errs: []error{&store.ConnectionError{Err: errors.New("refused")}}}).connect,
		&countingCollector{}, nil, Options{Logger: logmanager.Discard()})
	if err := failing.RunOnce(context.Background()); !store.IsConnection(err) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if !strings.Contains(failing.Status().LastError, "refused") {
		t.Errorf("last error = %q", failing.Status().LastError)
	}
}

func TestSetIntervalAndStatus(t *testing.T) {
	loop := New(nil, nil, nil, Options{})
	if loop.Interval() != DefaultInterval {
		t.Fatalf("default interval = %s", loop.Interval())
	}
	loop.SetInterval(30 * time.Second)
	loop.SetInterval(-1)
	loop.SetReportCount(-4)

	status := loop.Status()
	if status.Interval != "30s" || status.ReportCount != 0 || status.State != "connecting" {
		t.Fatalf("status = %+v", status)
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("sleepContext on cancelled ctx = %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("sleepContext = %v", err)
	}
}
