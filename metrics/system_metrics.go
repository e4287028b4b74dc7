package metrics

import (
	"context"
	"os"
	"strings"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"

	"dcollector/internal/sample"
	"dcollector/logmanager"
)

// SystemProvider is the slice of gopsutil the system adapter reads.
type SystemProvider interface {
	HostInfo(ctx context.Context) (*host.InfoStat, error)
	CPUPercent(ctx context.Context) ([]float64, error)
	CPUCount(ctx context.Context) (int, error)
	LoadAvg(ctx context.Context) (*load.AvgStat, error)
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error)
}

type gopsutilSystem struct{}

// GopsutilSystem reads host statistics through gopsutil.
func GopsutilSystem() SystemProvider {
	return gopsutilSystem{}
}

func (gopsutilSystem) HostInfo(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx)
}

func (gopsutilSystem) CPUPercent(ctx context.Context) ([]float64, error) {
	return cpu.PercentWithContext(ctx, 0, true)
}

func (gopsutilSystem) CPUCount(ctx context.Context) (int, error) {
	physical, err := cpu.CountsWithContext(ctx, false)
	if err == nil && physical > 0 {
		return physical, nil
	}
	return cpu.CountsWithContext(ctx, true)
}

func (gopsutilSystem) LoadAvg(ctx context.Context) (*load.AvgStat, error) {
	return load.AvgWithContext(ctx)
}

func (gopsutilSystem) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (gopsutilSystem) SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error) {
	return mem.SwapMemoryWithContext(ctx)
}

// SystemAdapter builds one SystemSample per call.
type SystemAdapter struct {
	provider SystemProvider
	stamper  *Stamper
	logger   *logmanager.Logger
}

func NewSystemAdapter(provider SystemProvider, stamper *Stamper, logger *logmanager.Logger) *SystemAdapter {
	a := &SystemAdapter{provider: provider, stamper: stamper, logger: logger}
	// warm-up call so subsequent percent calculations have delta
	if _, err := provider.CPUPercent(context.Background()); err != nil {
		logger.Warnf("failed to initialize cpu percent collection: %v", err)
	}
	return a
}

// Sample reads the current system statistics. Every field is best
// effort: a failing probe leaves its fields absent.
func (a *SystemAdapter) Sample(ctx context.Context) sample.SystemSample {
	s := sample.SystemSample{Time: a.stamper.Stamp()}

	if info, err := a.provider.HostInfo(ctx); err != nil {
		a.logger.Warnf("failed to read host info: %v", err)
		if name, err := os.Hostname(); err == nil && name != "" {
			s.HostName = sample.Ptr(name)
		}
	} else {
		s.HostName = nonEmpty(info.Hostname)
		s.Name = nonEmpty(osName(info))
		s.KernelVersion = nonEmpty(info.KernelVersion)
		s.OSVersion = nonEmpty(info.PlatformVersion)
	}

	if percentages, err := a.provider.CPUPercent(ctx); err != nil {
		a.logger.Warnf("failed to collect cpu percent: %v", err)
	} else if len(percentages) > 0 {
		s.CPUUsage = sample.Ptr(mean(percentages))
	}

	if count, err := a.provider.CPUCount(ctx); err != nil {
		a.logger.Warnf("failed to count processors: %v", err)
	} else if count > 0 {
		s.Processors = sample.Ptr(int32(count))
	}

	if avg, err := a.provider.LoadAvg(ctx); err != nil {
		a.logger.Warnf("failed to read load average: %v", err)
	} else if avg != nil {
		s.LoadOne = sample.Ptr(avg.Load1)
		s.LoadFive = sample.Ptr(avg.Load5)
		s.LoadFifteen = sample.Ptr(avg.Load15)
	}

	if vm, err := a.provider.VirtualMemory(ctx); err != nil {
		a.logger.Warnf("failed to read memory usage: %v", err)
	} else if vm != nil {
		s.TotalMemory = sample.Ptr(kib(vm.Total))
		s.UsedMemory = sample.Ptr(kib(vm.Used))
	}

	if swap, err := a.provider.SwapMemory(ctx); err != nil {
		a.logger.Warnf("failed to read swap usage: %v", err)
	} else if swap != nil {
		s.TotalSwap = sample.Ptr(kib(swap.Total))
		s.UsedSwap = sample.Ptr(kib(swap.Used))
	}

	return s
}

func osName(info *host.InfoStat) string {
	if info.Platform != "" {
		return info.Platform
	}
	return info.OS
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func kib(bytes uint64) int64 {
	return int64(bytes / 1024)
}

func nonEmpty(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
