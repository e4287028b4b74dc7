package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/process"

	"dcollector/internal/sample"
	"dcollector/logmanager"
)

// DefaultProcessGap is the minimum spacing between two process samples.
const DefaultProcessGap = 10 * time.Millisecond

// ProcessInfo is what a provider reports for one process. Nil fields
// could not be read.
type ProcessInfo struct {
	PID        int32
	Name       *string
	Exe        *string
	Cmdline    *string
	Status     *string
	CreateTime *int64 // milliseconds since the epoch
	ReadBytes  *uint64
	WriteBytes *uint64
	CPUPercent *float64
	RSS        *uint64 // bytes
}

type ProcessProvider interface {
	Processes(ctx context.Context) ([]ProcessInfo, error)
}

type gopsutilProcesses struct{}

// GopsutilProcesses enumerates processes through gopsutil.
func GopsutilProcesses() ProcessProvider {
	return gopsutilProcesses{}
}

func (gopsutilProcesses) Processes(ctx context.Context) ([]ProcessInfo, error) {
	processes, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]ProcessInfo, 0, len(processes))
	for _, proc := range processes {
		info := ProcessInfo{PID: proc.Pid}

		if name, err := proc.NameWithContext(ctx); err == nil {
			info.Name = sample.Ptr(name)
		}
		if exe, err := proc.ExeWithContext(ctx); err == nil {
			info.Exe = sample.Ptr(exe)
		}
		if cmdline, err := proc.CmdlineWithContext(ctx); err == nil {
			info.Cmdline = sample.Ptr(cmdline)
		}
		if status, err := proc.StatusWithContext(ctx); err == nil {
			info.Status = sample.Ptr(statusString(status))
		}
		if created, err := proc.CreateTimeWithContext(ctx); err == nil {
			info.CreateTime = sample.Ptr(created)
		}
		if counters, err := proc.IOCountersWithContext(ctx); err == nil && counters != nil {
			info.ReadBytes = sample.Ptr(counters.ReadBytes)
			info.WriteBytes = sample.Ptr(counters.WriteBytes)
		}
		if cpuPercent, err := proc.CPUPercentWithContext(ctx); err == nil {
			info.CPUPercent = sample.Ptr(cpuPercent)
		}
		if memInfo, err := proc.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			info.RSS = sample.Ptr(memInfo.RSS)
		}

		infos = append(infos, info)
	}
	return infos, nil
}

// statusString accepts both the single string and the string slice
// forms gopsutil has used for process status.
func statusString(status interface{}) string {
	switch v := status.(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprint(v)
	}
}

var processStatusNames = map[string]string{
	"R": "Run", "running": "Run",
	"S": "Sleep", "sleep": "Sleep",
	"T": "Stop", "stop": "Stop",
	"I": "Idle", "idle": "Idle",
	"Z": "Zombie", "zombie": "Zombie",
	"W": "Waking", "wait": "Waking",
	"L": "LockBlocked", "lock": "LockBlocked",
	"D": "UninterruptibleDiskSleep",
	"X": "Dead",
}

func normalizeStatus(status string) string {
	status = strings.TrimSpace(status)
	if name, ok := processStatusNames[status]; ok {
		return name
	}
	return status
}

type ioTotals struct {
	read, written uint64
}

// ProcessAdapter turns the provider's process list into samples, one per
// process, paced so that no two samples share a timestamp.
type ProcessAdapter struct {
	provider ProcessProvider
	stamper  *Stamper
	gap      time.Duration
	logger   *logmanager.Logger

	previous map[int32]ioTotals
}

func NewProcessAdapter(provider ProcessProvider, stamper *Stamper, gap time.Duration, logger *logmanager.Logger) *ProcessAdapter {
	return &ProcessAdapter{
		provider: provider,
		stamper:  stamper,
		gap:      gap,
		logger:   logger,
		previous: make(map[int32]ioTotals),
	}
}

// Samples returns one sample per visible process. A provider failure
// yields no samples.
func (a *ProcessAdapter) Samples(ctx context.Context, hostName *string) []sample.ProcessSample {
	infos, err := a.provider.Processes(ctx)
	if err != nil {
		a.logger.Warnf("failed to enumerate processes: %v", err)
		return nil
	}

	current := make(map[int32]ioTotals, len(infos))
	samples := make([]sample.ProcessSample, 0, len(infos))

	for _, info := range infos {
		if ctx.Err() != nil {
			break
		}

		s := sample.ProcessSample{
			Time:     a.stamper.Pace(a.gap),
			HostName: hostName,
			Name:     info.Name,
			Cmd:      info.Cmdline,
			CPUUsage: info.CPUPercent,
		}

		s.Exe = info.Exe
		if info.Exe == nil || *info.Exe == "" {
			s.Exe = info.Name
		}
		if info.Status != nil {
			s.Status = sample.Ptr(normalizeStatus(*info.Status))
		}
		if info.CreateTime != nil && *info.CreateTime > 0 {
			s.StartTime = sample.Ptr(time.UnixMilli(*info.CreateTime).UTC())
		}
		if info.RSS != nil {
			s.RSS = sample.Ptr(kib(*info.RSS))
		}

		if info.ReadBytes != nil && info.WriteBytes != nil {
			totals := ioTotals{read: *info.ReadBytes, written: *info.WriteBytes}
			prev := a.previous[info.PID]
			s.DiskReadTotal = sample.Ptr(int64(totals.read))
			s.DiskWrittenTotal = sample.Ptr(int64(totals.written))
			s.DiskRead = sample.Ptr(int64(delta(totals.read, prev.read)))
			s.DiskWritten = sample.Ptr(int64(delta(totals.written, prev.written)))
			current[info.PID] = totals
		}

		samples = append(samples, s)
	}

	a.previous = current
	return samples
}

// delta treats a counter that went backwards (PID reuse) as restarted.
func delta(total, previous uint64) uint64 {
	if total < previous {
		return total
	}
	return total - previous
}
