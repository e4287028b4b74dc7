package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"dcollector/logmanager"
)

type fakeVars struct {
	values map[string]string
	closed bool
}

func (f *fakeVars) Var(_ context.Context, ups, name string) (string, error) {
	if ups != "eta" {
		return "", errors.New("ERR UNKNOWN-UPS")
	}
	v, ok := f.values[name]
	if !ok {
		return "", errors.New("ERR VAR-NOT-SUPPORTED")
	}
	return v, nil
}

func (f *fakeVars) Close() error {
	f.closed = true
	return nil
}

func dialer(source *fakeVars) DialFunc {
	return func(context.Context) (VarSource, error) { return source, nil }
}

func TestUPSAdapterSample(t *testing.T) {
	source := &fakeVars{values: map[string]string{
		varModel:          "Eaton 5E",
		varStatus:         "OL",
		varLoad:           "17",
		varInputFrequency: "50.0",
		varInputVoltage:   "229.5",
		varBatteryCharge:  "100.0",
		varBatteryVoltage: "13.6",
	}}
	adapter := NewUPSAdapter(dialer(source), "eta", fixedStamper(time.Unix(1700000000, 0)), logmanager.Discard())

	s := adapter.Sample(context.Background())

	if *s.Model != "Eaton 5E" || *s.Status != "OL" {
		t.Errorf("unexpected identity: %s", s)
	}
	if *s.Load != 17 || *s.BatteryCharge != 100 {
		t.Errorf("load/charge = %d/%d", *s.Load, *s.BatteryCharge)
	}
	if *s.InputFrequency != 50 || *s.InputVoltage != 229.5 || *s.BatteryVoltage != 13.6 {
		t.Errorf("unexpected electrical readings: %s", s)
	}
	if !source.closed {
		t.Error("session should be closed after sampling")
	}
	if got := testutil.ToFloat64(UPSReachable); got != 1 {
		t.Errorf("ups reachable gauge = %v, want 1", got)
	}
}

func TestUPSAdapterPartialVariables(t *testing.T) {
	source := &fakeVars{values: map[string]string{
		varStatus:        "OB LB",
		varLoad:          "n/a",
		varBatteryCharge: "12",
	}}
	adapter := NewUPSAdapter(dialer(source), "eta", fixedStamper(time.Unix(1700000000, 0)), logmanager.Discard())

	s := adapter.Sample(context.Background())

	if s.Status == nil || *s.Status != "OB LB" {
		t.Errorf("status = %v", s.Status)
	}
	if s.Load != nil {
		t.Errorf("unparseable load should be absent, got %d", *s.Load)
	}
	if s.Model != nil || s.InputVoltage != nil || s.BatteryVoltage != nil {
		t.Error("unsupported variables should be absent")
	}
	if s.BatteryCharge == nil || *s.BatteryCharge != 12 {
		t.Errorf("battery charge = %v, want 12", s.BatteryCharge)
	}
	if s.IsEmpty() {
		t.Error("sample with a status should not be empty")
	}
}

func TestUPSAdapterUnreachable(t *testing.T) {
	dial := func(context.Context) (VarSource, error) { return nil, errors.New("connection refused") }
	adapter := NewUPSAdapter(dial, "eta", fixedStamper(time.Unix(1700000000, 0)), logmanager.Discard())

	s := adapter.Sample(context.Background())

	if !s.IsEmpty() {
		t.Fatalf("unreachable UPS should produce an empty sample, got %s", s)
	}
	if s.Time.IsZero() {
		t.Error("empty sample should still carry a time")
	}
	if got := testutil.ToFloat64(UPSReachable); got != 0 {
		t.Errorf("ups reachable gauge = %v, want 0", got)
	}
}

func TestParseVarResponse(t *testing.T) {
	value, err := parseVarResponse([]string{`VAR eta battery.charge "100"`}, "eta", "battery.charge")
	if err != nil || value != "100" {
		t.Errorf("got %q, %v", value, err)
	}

	value, err = parseVarResponse([]string{`VAR eta ups.model "Back-UPS \"XS\""`}, "eta", "ups.model")
	if err != nil || value != `Back-UPS "XS"` {
		t.Errorf("escaped quotes: got %q, %v", value, err)
	}

	if _, err := parseVarResponse([]string{"ERR VAR-NOT-SUPPORTED"}, "eta", "ups.load"); err == nil {
		t.Error("expected error for ERR reply")
	}
	if _, err := parseVarResponse([]string{"OK"}, "eta", "ups.load"); err == nil {
		t.Error("expected error when no VAR line is present")
	}
}

func TestParseNumbers(t *testing.T) {
	text := func(s string) *string { return &s }

	if v := parseInt32(text("17.6")); v == nil || *v != 18 {
		t.Errorf("parseInt32(17.6) = %v, want 18", v)
	}
	if v := parseInt32(text(" 42 ")); v == nil || *v != 42 {
		t.Errorf("parseInt32(42) = %v", v)
	}
	if v := parseInt32(text("1e12")); v != nil {
		t.Errorf("out of range value should be absent, got %d", *v)
	}
	if v := parseFloat(text("NaN")); v != nil {
		t.Errorf("NaN should be absent, got %v", *v)
	}
	if v := parseFloat(nil); v != nil {
		t.Error("nil input should be absent")
	}
}

// stuckClient answers the first reply and then never returns.
type stuckClient struct {
	replies      map[string][]string
	block        chan struct{}
	disconnected chan struct{}
}

func (c *stuckClient) SendCommand(cmd string) ([]string, error) {
	if lines, ok := c.replies[cmd]; ok {
		return lines, nil
	}
	<-c.block
	return nil, errors.New("connection closed")
}

func (c *stuckClient) Disconnect() (bool, error) {
	close(c.disconnected)
	return true, nil
}

func TestNUTSourceVarTimesOut(t *testing.T) {
	client := &stuckClient{
		replies:      map[string][]string{"GET VAR eta ups.model": {`VAR eta ups.model "Eaton 5E"`}},
		block:        make(chan struct{}),
		disconnected: make(chan struct{}),
	}
	defer close(client.block)
	source := newNUTSource(client, 20*time.Millisecond)

	model, err := source.Var(context.Background(), "eta", "ups.model")
	if err != nil || model != "Eaton 5E" {
		t.Fatalf("model = %q, %v", model, err)
	}

	started := time.Now()
	if _, err := source.Var(context.Background(), "eta", "ups.load"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error from a silent server, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("read took %s, should be bounded by the timeout", elapsed)
	}

	// the stalled session is not reused
	if _, err := source.Var(context.Background(), "eta", "ups.model"); err == nil {
		t.Fatal("expected error on a stalled session")
	}
	if err := source.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case <-client.disconnected:
	case <-time.After(time.Second):
		t.Fatal("stalled session never disconnected")
	}
}

func TestNUTConfigReadsPasswordPerCall(t *testing.T) {
	current := "first"
	cfg := NUTConfig{Password: func() string { return current }}
	if got := cfg.password(); got != "first" {
		t.Fatalf("password = %q", got)
	}
	current = "rotated"
	if got := cfg.password(); got != "rotated" {
		t.Fatalf("password = %q after rotation", got)
	}
	if got := (NUTConfig{}).password(); got != "" {
		t.Fatalf("unset password = %q", got)
	}
}
