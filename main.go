package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"dcollector/internal/api"
	"dcollector/internal/collector"
	"dcollector/internal/config"
	"dcollector/internal/lockfile"
	"dcollector/internal/report"
	"dcollector/internal/secrets"
	"dcollector/internal/store"
	"dcollector/logmanager"
	"dcollector/metrics"
	"dcollector/service"
	"dcollector/watcher"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	flags := pflag.NewFlagSet("dcollector", pflag.ContinueOnError)
	configPath := flags.String("config", config.PathFromEnv(), "path to the YAML configuration file")
	once := flags.Bool("once", false, "run a single collect and persist pass, then exit")
	reportCount := flags.Int("report-count", -1, "rows per table printed after each iteration (-1 keeps the configured value)")
	checkConfig := flags.Bool("check-config", false, "validate the configuration and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("invalid configuration: %v", err)
		return 1
	}
	if *reportCount >= 0 {
		cfg.Poll.ReportCount = reportCount
	}
	if *checkConfig {
		fmt.Printf("configuration OK (interval %s, ups %s@%s:%d)\n", cfg.Poll.Interval, cfg.UPS.Name, cfg.UPS.Host, cfg.UPS.Port)
		return 0
	}

	logMgr, err := logmanager.New(logmanager.Options{
		FilePath:   cfg.Log.File,
		EnableFile: cfg.Log.File != "",
		Debug:      cfg.Log.Debug,
		Stdout:     os.Stdout,
	})
	if err != nil {
		log.Printf("failed to setup logging: %v", err)
		return 1
	}
	defer func() {
		if err := logMgr.Close(); err != nil {
			log.Printf("failed to close log manager: %v", err)
		}
	}()
	logger := logMgr.Logger()

	secretsMgr := secrets.NewManager(logger)
	if err := secretsMgr.Reload(); err != nil {
		logger.Errorf("failed to load secrets: %v", err)
		return 1
	}
	if secretsMgr.DatabaseURL(cfg.Database.URL) == "" {
		logger.Errorf("DATABASE_URL must be set")
		return 1
	}

	lock, err := lockfile.Acquire(cfg.PIDFile)
	if err != nil {
		logger.Errorf("couldn't obtain lock file: %v", err)
		return 1
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warnf("failed to remove lock file %s: %v", lock.Path(), err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secretsMgr.WatchFiles(ctx)
	go reloadOnHangup(ctx, secretsMgr, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(registry); err != nil {
		logger.Errorf("failed to register metrics: %v", err)
		return 1
	}

	coll := collector.New(collector.NewSources(collectorConfig(cfg, secretsMgr), logger), logger)
	loop := service.New(connector(cfg, secretsMgr, logger), coll, report.New(os.Stdout, logger), service.Options{
		Interval:    cfg.Poll.Interval,
		Backoff:     cfg.Poll.Backoff,
		ReportCount: cfg.Poll.ReportRows(),
		Logger:      logger,
	})

	if *once {
		if err := loop.RunOnce(ctx); err != nil {
			logger.Errorf("iteration failed: %v", err)
			return 1
		}
		return 0
	}

	if cfg.Metrics.Addr != "" {
		router := api.NewRouter(registry, loop, secretsMgr, logger)
		go func() {
			if err := service.Serve(ctx, cfg.Metrics.Addr, router, logger); err != nil {
				logger.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	err = watcher.Watch(ctx, *configPath, func() {
		next, err := config.Load(*configPath)
		if err != nil {
			logger.Warnf("ignoring config change: %v", err)
			return
		}
		loop.SetInterval(next.Poll.Interval)
		if *reportCount < 0 {
			loop.SetReportCount(next.Poll.ReportRows())
		}
		logger.Infof("reloaded %s (interval %s)", *configPath, next.Poll.Interval)
	}, logger)
	if err != nil {
		logger.Debugf("config reload disabled: %v", err)
	}

	logger.Infof("dcollector started (pid file %s, interval %s)", lock.Path(), cfg.Poll.Interval)
	loop.Run(ctx)
	logger.Infof("service stopped")
	return 0
}

func collectorConfig(cfg *config.Config, secretsMgr *secrets.Manager) collector.Config {
	var out collector.Config
	out.UPS = collector.UPSConfig{
		Enabled: cfg.UPS.IsEnabled(),
		Name:    cfg.UPS.Name,
		NUT: metrics.NUTConfig{
			Host:     cfg.UPS.Host,
			Port:     cfg.UPS.Port,
			Username: cfg.UPS.Username,
			Password: secretsMgr.NUTPassword,
			Timeout:  cfg.UPS.Timeout,
		},
	}
	out.Processes = collector.ProcessConfig{Enabled: cfg.Process.IsEnabled(), Gap: cfg.Process.Gap}
	out.Disks = collector.DiskConfig{Enabled: cfg.Disk.IsEnabled()}
	out.Disks.Smartctl = cfg.Disk.Smartctl
	out.Disks.Devices = cfg.Disk.Devices
	return out
}

// connector opens the store with the current database URL, so rotated
// credentials apply on the next reconnect.
func connector(cfg *config.Config, secretsMgr *secrets.Manager, logger *logmanager.Logger) service.Connector {
	return func(ctx context.Context) (service.Store, error) {
		st, err := store.Open(ctx, store.Config{
			URL:          secretsMgr.DatabaseURL(cfg.Database.URL),
			MaxOpenConns: cfg.Database.MaxOpenConns,
			Options: store.Options{
				Timescale: cfg.Database.Timescale,
				BatchRows: cfg.Database.BatchRows,
				Logger:    logger,
			},
		})
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := st.EnsureSchema(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}
		return st, nil
	}
}

// reloadSecretsOn re-reads every secret each time a signal arrives on sig.
func reloadSecretsOn(ctx context.Context, sig <-chan os.Signal, secretsMgr *secrets.Manager, logger *logmanager.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := secretsMgr.Reload(); err != nil {
				logger.Errorf("failed to reload secrets: %v", err)
				continue
			}
			secretsMgr.WatchFiles(ctx)
			logger.Infof("reloaded secrets from environment")
		}
	}
}
