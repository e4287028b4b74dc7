package sample

import (
	"fmt"
	"time"
)

const displayTimeLayout = "2006-01-02 15:04:05.000000 -07:00"

func (s SystemSample) String() string {
	return fmt.Sprintf(
		"Time: %s, Name: %s, CPU usage: %v, Load: %v %v %v, Kernel version: %s, OS version: %s, Host name: %s, Processors: %d, Total memory: %dKiB, Used memory: %dKiB, Total swap: %dKiB, Used swap: %dKiB",
		formatTime(s.Time),
		deref(s.Name),
		deref(s.CPUUsage),
		deref(s.LoadOne), deref(s.LoadFive), deref(s.LoadFifteen),
		deref(s.KernelVersion),
		deref(s.OSVersion),
		deref(s.HostName),
		deref(s.Processors),
		deref(s.TotalMemory),
		deref(s.UsedMemory),
		deref(s.TotalSwap),
		deref(s.UsedSwap),
	)
}

func (s ProcessSample) String() string {
	start := ""
	if s.StartTime != nil {
		start = formatTime(*s.StartTime)
	}
	return fmt.Sprintf(
		"Time: %s, Name: %s, Exe: %s, Cmd: %s, Status: %s, Start time: %s, CPU usage: %v, Resident memory: %dKiB, Disk read: %d / %d, Disk write: %d / %d",
		formatTime(s.Time),
		deref(s.Name),
		deref(s.Exe),
		deref(s.Cmd),
		deref(s.Status),
		start,
		deref(s.CPUUsage),
		deref(s.RSS),
		deref(s.DiskRead), deref(s.DiskReadTotal),
		deref(s.DiskWritten), deref(s.DiskWrittenTotal),
	)
}

func (s DiskSample) String() string {
	return fmt.Sprintf(
		"Time: %s, Name: %s, Temperature: %v, CRC errors: %d, Seek time: %d, Seek error rate: %d, Throughput: %d, Read error rate: %d",
		formatTime(s.Time),
		deref(s.Name),
		deref(s.Temperature),
		deref(s.CRCErrors),
		deref(s.SeekTime),
		deref(s.SeekErrorRate),
		deref(s.Throughput),
		deref(s.ReadErrorRate),
	)
}

func (s UpsSample) String() string {
	return fmt.Sprintf(
		"Time: %s, Model: %s, Status: %s, Load: %d, Input frequency: %v, Input voltage: %v, Battery charge: %d, Battery voltage: %v",
		formatTime(s.Time),
		deref(s.Model),
		deref(s.Status),
		deref(s.Load),
		deref(s.InputFrequency),
		deref(s.InputVoltage),
		deref(s.BatteryCharge),
		deref(s.BatteryVoltage),
	)
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

func formatTime(t time.Time) string {
	return t.Local().Format(displayTimeLayout)
}
