package metrics

import (
	"context"
	"math"
	"strconv"
	"strings"

	"dcollector/internal/sample"
	"dcollector/logmanager"
)

// NUT variable names read for every UPS sample.
const (
	varModel          = "ups.model"
	varStatus         = "ups.status"
	varLoad           = "ups.load"
	varInputFrequency = "input.frequency"
	varInputVoltage   = "input.voltage"
	varBatteryCharge  = "battery.charge"
	varBatteryVoltage = "battery.voltage"
)

// VarSource is an open session to a UPS telemetry server.
type VarSource interface {
	Var(ctx context.Context, ups, name string) (string, error)
	Close() error
}

// DialFunc opens a VarSource.
type DialFunc func(ctx context.Context) (VarSource, error)

// UPSAdapter reads one UpsSample per call. It never fails: an
// unreachable server produces an empty sample.
type UPSAdapter struct {
	dial    DialFunc
	ups     string
	stamper *Stamper
	logger  *logmanager.Logger
}

func NewUPSAdapter(dial DialFunc, ups string, stamper *Stamper, logger *logmanager.Logger) *UPSAdapter {
	return &UPSAdapter{dial: dial, ups: ups, stamper: stamper, logger: logger}
}

func (a *UPSAdapter) Sample(ctx context.Context) sample.UpsSample {
	s := sample.UpsSample{Time: a.stamper.Stamp()}

	source, err := a.dial(ctx)
	if err != nil {
		a.logger.Warnf("UPS %s unreachable: %v", a.ups, err)
		UPSReachable.Set(0)
		return s
	}
	defer func() {
		if err := source.Close(); err != nil {
			a.logger.Debugf("closing UPS session: %v", err)
		}
	}()
	UPSReachable.Set(1)

	get := func(name string) *string {
		value, err := source.Var(ctx, a.ups, name)
		if err != nil {
			a.logger.Debugf("UPS %s: no %s: %v", a.ups, name, err)
			return nil
		}
		return &value
	}

	s.Model = nonEmpty(deref(get(varModel)))
	s.Status = nonEmpty(deref(get(varStatus)))
	s.Load = parseInt32(get(varLoad))
	s.InputFrequency = parseFloat(get(varInputFrequency))
	s.InputVoltage = parseFloat(get(varInputVoltage))
	s.BatteryCharge = parseInt32(get(varBatteryCharge))
	s.BatteryVoltage = parseFloat(get(varBatteryVoltage))

	return s
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func parseFloat(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseInt32 accepts "17" as well as the "17.0" some drivers report.
func parseInt32(raw *string) *int32 {
	if raw == nil {
		return nil
	}
	text := strings.TrimSpace(*raw)
	if v, err := strconv.ParseInt(text, 10, 32); err == nil {
		return sample.Ptr(int32(v))
	}
	f := parseFloat(&text)
	if f == nil || *f > math.MaxInt32 || *f < math.MinInt32 {
		return nil
	}
	return sample.Ptr(int32(math.Round(*f)))
}
