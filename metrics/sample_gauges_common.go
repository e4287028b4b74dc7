package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"dcollector/internal/sample"
)

// Gauges mirroring the most recent committed snapshot.
var (
	CPUUsage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcollector_cpu_usage_percent",
			Help: "Mean CPU usage across cores",
		},
	)

	LoadAverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dcollector_load_average",
			Help: "System load average",
		},
		[]string{"window"},
	)

	TotalMemory = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcollector_total_memory_kib",
			Help: "Total memory on system",
		},
	)

	UsedMemory = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcollector_used_memory_kib",
			Help: "Used memory on system",
		},
	)

	ProcessCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcollector_processes",
			Help: "Processes sampled in the last iteration",
		},
	)

	DiskTemperature = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dcollector_disk_temperature_celsius",
			Help: "Drive temperature reported by S.M.A.R.T.",
		},
		[]string{"disk"},
	)

	DiskCRCErrors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dcollector_disk_crc_errors",
			Help: "UDMA CRC error count reported by S.M.A.R.T.",
		},
		[]string{"disk"},
	)

	UPSBatteryCharge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcollector_ups_battery_charge_percent",
			Help: "UPS battery charge",
		},
	)

	UPSLoad = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dcollector_ups_load_percent",
			Help: "UPS output load",
		},
	)
)

func sampleGauges() []prometheus.Collector {
	return []prometheus.Collector{
		CPUUsage, LoadAverage, TotalMemory, UsedMemory, ProcessCount,
		DiskTemperature, DiskCRCErrors, UPSBatteryCharge, UPSLoad,
	}
}

// ObserveSnapshot updates the snapshot gauges. Absent fields leave the
// previous value in place.
func ObserveSnapshot(snap sample.Snapshot) {
	if s := snap.System; s != nil {
		setGauge(CPUUsage, s.CPUUsage)
		setGauge(LoadAverage.WithLabelValues("1m"), s.LoadOne)
		setGauge(LoadAverage.WithLabelValues("5m"), s.LoadFive)
		setGauge(LoadAverage.WithLabelValues("15m"), s.LoadFifteen)
		setGauge(TotalMemory, s.TotalMemory)
		setGauge(UsedMemory, s.UsedMemory)
	}
	ProcessCount.Set(float64(len(snap.Processes)))

	DiskTemperature.Reset()
	DiskCRCErrors.Reset()
	for _, d := range snap.Disks {
		if d.Name == nil {
			continue
		}
		setGauge(DiskTemperature.WithLabelValues(*d.Name), d.Temperature)
		setGauge(DiskCRCErrors.WithLabelValues(*d.Name), d.CRCErrors)
	}

	if u := snap.UPS; u != nil {
		setGauge(UPSBatteryCharge, u.BatteryCharge)
		setGauge(UPSLoad, u.Load)
	}
}

type number interface {
	~int32 | ~int64 | ~float64
}

func setGauge[T number](g prometheus.Gauge, v *T) {
	if v != nil {
		g.Set(float64(*v))
	}
}
