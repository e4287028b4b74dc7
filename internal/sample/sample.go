// Package sample holds the snapshot model persisted by dcollector: one
// record type per table, each keyed by its capture time.
//
// Optional attributes are pointers; nil means the provider did not
// report the value. A sample is empty when every attribute other than
// Time is nil or points at the zero value of its type.
package sample

import "time"

// SystemSample holds one row of host-wide statistics.
type SystemSample struct {
	Time time.Time

	HostName      *string
	Name          *string // OS name
	KernelVersion *string
	OSVersion     *string
	Processors    *int32
	CPUUsage      *float64
	LoadOne       *float64
	LoadFive      *float64
	LoadFifteen   *float64
	TotalMemory   *int64 // KiB
	UsedMemory    *int64 // KiB
	TotalSwap     *int64 // KiB
	UsedSwap      *int64 // KiB
}

// ProcessSample holds one row describing a running process.
type ProcessSample struct {
	Time time.Time

	HostName         *string
	StartTime        *time.Time
	Exe              *string
	Cmd              *string
	Name             *string
	DiskRead         *int64
	DiskReadTotal    *int64
	DiskWritten      *int64
	DiskWrittenTotal *int64
	CPUUsage         *float64
	RSS              *int64 // KiB
	Status           *string
}

// DiskSample holds the S.M.A.R.T. attributes of one block device.
type DiskSample struct {
	Time time.Time

	HostName      *string
	Name          *string
	Temperature   *float64
	CRCErrors     *int64
	SeekTime      *int64
	SeekErrorRate *int64
	Throughput    *int64
	ReadErrorRate *int64
}

// UpsSample holds one row of UPS data fetched from a NUT server.
type UpsSample struct {
	Time time.Time

	Model          *string
	Status         *string
	Load           *int32
	InputFrequency *float64
	InputVoltage   *float64
	BatteryCharge  *int32
	BatteryVoltage *float64
}

func (s SystemSample) Kind() Kind  { return KindSystem }
func (s ProcessSample) Kind() Kind { return KindProcess }
func (s DiskSample) Kind() Kind    { return KindDisk }
func (s UpsSample) Kind() Kind     { return KindUPS }

func (s SystemSample) CapturedAt() time.Time  { return s.Time }
func (s ProcessSample) CapturedAt() time.Time { return s.Time }
func (s DiskSample) CapturedAt() time.Time    { return s.Time }
func (s UpsSample) CapturedAt() time.Time     { return s.Time }

// IsEmpty reports whether the sample carries no information besides its
// time key.
func (s SystemSample) IsEmpty() bool {
	return isDefault(s.HostName) &&
		isDefault(s.Name) &&
		isDefault(s.KernelVersion) &&
		isDefault(s.OSVersion) &&
		isDefault(s.Processors) &&
		isDefault(s.CPUUsage) &&
		isDefault(s.LoadOne) &&
		isDefault(s.LoadFive) &&
		isDefault(s.LoadFifteen) &&
		isDefault(s.TotalMemory) &&
		isDefault(s.UsedMemory) &&
		isDefault(s.TotalSwap) &&
		isDefault(s.UsedSwap)
}

func (s ProcessSample) IsEmpty() bool {
	return isDefault(s.HostName) &&
		isDefaultTime(s.StartTime) &&
		isDefault(s.Exe) &&
		isDefault(s.Cmd) &&
		isDefault(s.Name) &&
		isDefault(s.DiskRead) &&
		isDefault(s.DiskReadTotal) &&
		isDefault(s.DiskWritten) &&
		isDefault(s.DiskWrittenTotal) &&
		isDefault(s.CPUUsage) &&
		isDefault(s.RSS) &&
		isDefault(s.Status)
}

func (s DiskSample) IsEmpty() bool {
	return isDefault(s.HostName) &&
		isDefault(s.Name) &&
		isDefault(s.Temperature) &&
		isDefault(s.CRCErrors) &&
		isDefault(s.SeekTime) &&
		isDefault(s.SeekErrorRate) &&
		isDefault(s.Throughput) &&
		isDefault(s.ReadErrorRate)
}

func (s UpsSample) IsEmpty() bool {
	return isDefault(s.Model) &&
		isDefault(s.Status) &&
		isDefault(s.Load) &&
		isDefault(s.InputFrequency) &&
		isDefault(s.InputVoltage) &&
		isDefault(s.BatteryCharge) &&
		isDefault(s.BatteryVoltage)
}

func isDefault[T comparable](v *T) bool {
	if v == nil {
		return true
	}
	var zero T
	return *v == zero
}

func isDefaultTime(v *time.Time) bool {
	return v == nil || v.IsZero()
}

// Ptr returns a pointer to v. Adapters use it to fill optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// Snapshot is everything collected in one iteration.
type Snapshot struct {
	System    *SystemSample
	UPS       *UpsSample
	Processes []ProcessSample
	Disks     []DiskSample
}

// Len returns the number of samples in the snapshot.
func (s Snapshot) Len() int {
	n := len(s.Processes) + len(s.Disks)
	if s.System != nil {
		n++
	}
	if s.UPS != nil {
		n++
	}
	return n
}

// Empty reports whether the snapshot holds no samples at all.
func (s Snapshot) Empty() bool {
	return s.Len() == 0
}

// Counts returns the number of samples per kind.
func (s Snapshot) Counts() map[Kind]int {
	counts := map[Kind]int{
		KindProcess: len(s.Processes),
		KindDisk:    len(s.Disks),
	}
	if s.System != nil {
		counts[KindSystem] = 1
	} else {
		counts[KindSystem] = 0
	}
	if s.UPS != nil {
		counts[KindUPS] = 1
	} else {
		counts[KindUPS] = 0
	}
	return counts
}
