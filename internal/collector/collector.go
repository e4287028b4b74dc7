// Package collector gathers one snapshot of every sample kind per
// polling iteration.
package collector

import (
	"context"
	"os"

	"dcollector/internal/sample"
	"dcollector/logmanager"
	"dcollector/metrics"
)

type Interface interface {
	Collect(ctx context.Context) sample.Snapshot
}

type SystemSource interface {
	Sample(ctx context.Context) sample.SystemSample
}

type UPSSource interface {
	Sample(ctx context.Context) sample.UpsSample
}

type ProcessSource interface {
	Samples(ctx context.Context, hostName *string) []sample.ProcessSample
}

type DiskSource interface {
	Samples(ctx context.Context, hostName *string) []sample.DiskSample
}

// Sources are the adapters a Collector reads. A nil source is skipped.
type Sources struct {
	System    SystemSource
	UPS       UPSSource
	Processes ProcessSource
	Disks     DiskSource
}

type Collector struct {
	sources  Sources
	logger   *logmanager.Logger
	hostname func() (string, error)
}

var _ Interface = (*Collector)(nil)

func New(sources Sources, logger *logmanager.Logger) *Collector {
	return &Collector{sources: sources, logger: logger, hostname: os.Hostname}
}

// NewSources builds the gopsutil, smartctl and NUT backed adapters
// described by cfg, all stamping from one Stamper.
func NewSources(cfg Config, logger *logmanager.Logger) Sources {
	stamper := cfg.Stamper
	if stamper == nil {
		stamper = metrics.NewStamper()
	}

	sources := Sources{
		System: metrics.NewSystemAdapter(metrics.GopsutilSystem(), stamper, logger),
	}
	if cfg.UPS.Enabled {
		sources.UPS = metrics.NewUPSAdapter(metrics.NUTDialer(cfg.UPS.NUT), cfg.UPS.Name, stamper, logger)
	}
	if cfg.Processes.Enabled {
		sources.Processes = metrics.NewProcessAdapter(metrics.GopsutilProcesses(), stamper, cfg.Processes.Gap, logger)
	}
	if cfg.Disks.Enabled {
		sources.Disks = metrics.NewDiskAdapter(metrics.ExecRunner(), cfg.Disks.DiskConfig, stamper, logger)
	}
	return sources
}

// Collect runs every configured adapter in turn. Adapters absorb their
// own failures, so the snapshot may be partially or entirely empty.
func (c *Collector) Collect(ctx context.Context) sample.Snapshot {
	var snap sample.Snapshot

	if c.sources.System != nil {
		system := c.sources.System.Sample(ctx)
		snap.System = &system
	}
	hostName := c.hostName(snap.System)

	if c.sources.UPS != nil && ctx.Err() == nil {
		ups := c.sources.UPS.Sample(ctx)
		snap.UPS = &ups
	}
	if c.sources.Processes != nil && ctx.Err() == nil {
		snap.Processes = c.sources.Processes.Samples(ctx, hostName)
	}
	if c.sources.Disks != nil && ctx.Err() == nil {
		snap.Disks = c.sources.Disks.Samples(ctx, hostName)
	}

	c.logger.Debugf("collected %d samples", snap.Len())
	return snap
}

func (c *Collector) hostName(system *sample.SystemSample) *string {
	if system != nil && system.HostName != nil {
		return system.HostName
	}
	name, err := c.hostname()
	if err != nil || name == "" {
		c.logger.Warnf("host name unavailable: %v", err)
		return nil
	}
	return &name
}
