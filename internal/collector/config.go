package collector

import (
	"time"

	"dcollector/metrics"
)

// Config selects which adapters NewSources builds.
type Config struct {
	UPS       UPSConfig
	Processes ProcessConfig
	Disks     DiskConfig
	Stamper   *metrics.Stamper
}

type UPSConfig struct {
	Enabled bool
	Name    string
	NUT     metrics.NUTConfig
}

type ProcessConfig struct {
	Enabled bool
	Gap     time.Duration
}

type DiskConfig struct {
	Enabled bool
	metrics.DiskConfig
}
