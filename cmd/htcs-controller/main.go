package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/htcs-sim/controller/internal/config"
	"github.com/htcs-sim/controller/internal/decision"
	"github.com/htcs-sim/controller/internal/dispatcher"
	"github.com/htcs-sim/controller/internal/eventbus"
	"github.com/htcs-sim/controller/internal/metrics"
	"github.com/htcs-sim/controller/internal/pool"
	"github.com/htcs-sim/controller/internal/reaper"
	"github.com/htcs-sim/controller/internal/registry"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	cfgPath, poolSizeOverride, verbose, metricsAddr := parseFlags()

	logger := setupLogger(verbose)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}
	if poolSizeOverride > 0 {
		cfg.StateClientPoolSize = poolSizeOverride
	}

	logger.WithFields(logrus.Fields{
		"version":     version,
		"address":     cfg.Address,
		"base_topic":  cfg.BaseTopic,
		"pool_size":   cfg.StateClientPoolSize,
		"metrics_addr": metricsAddr,
	}).Info("starting highway traffic controller")

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received termination signal, shutting down")
		cancel()
	}()

	reg := registry.New()
	met := metrics.New()
	bus := eventbus.New()

	p, err := pool.Dial(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to bus")
	}

	engine := decision.NewEngine(reg, p, logger,
		decision.WithMetrics(met),
		decision.WithEventBus(bus),
	)

	var shutdownOnce sync.Once
	disp := dispatcher.New(reg, p, logger, engine, func() {
		shutdownOnce.Do(cancel)
	})

	if err := p.SubscribeControl(disp.OnJoin, disp.OnObituary); err != nil {
		logger.WithError(err).Fatal("failed to subscribe control connection")
	}

	zombieReaper := reaper.New(reg, disp, logger, met)

	if verbose {
		go printDecisions(ctx, bus, logger)
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return zombieReaper.Run(ctx) })
	grp.Go(func() error { return engine.Run(ctx) })
	grp.Go(func() error { return met.Serve(ctx, metricsAddr) })
	grp.Go(func() error { return config.Watch(ctx, cfgPath, cfg, logger, nil) })
	grp.Go(func() error { return reportRegistrySize(ctx, reg, met) })

	if err := grp.Wait(); err != nil && err != context.Canceled {
		logger.WithError(err).Warn("background task exited with error")
	}

	p.Shutdown()
	logger.Info("shutdown complete")
}

func reportRegistrySize(ctx context.Context, reg *registry.Registry, met *metrics.Metrics) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			met.SetRegistrySize(reg.Len())
		}
	}
}

func printDecisions(ctx context.Context, bus *eventbus.Bus, logger *logrus.Logger) {
	sub := bus.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			logger.WithFields(logrus.Fields{
				"car_id":  ev.VehicleID,
				"command": ev.Command.String(),
			}).Debug("decision emitted")
		}
	}
}

func parseFlags() (cfgPath string, poolSizeOverride int, verbose bool, metricsAddr string) {
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.StringVar(&cfgPath, "config",
		getEnvOrDefault("HTCS_CONFIG", "connection.properties"),
		"Path to the key=value configuration file")

	flag.IntVar(&poolSizeOverride, "pool-size",
		getEnvIntOrDefault("HTCS_POOL_SIZE", 0),
		"Override state_client_pool_size from the config file (0 = use config file value)")

	flag.BoolVar(&verbose, "verbose",
		getEnvOrDefault("HTCS_VERBOSE", "false") == "true",
		"Enable verbose logging")

	flag.StringVar(&metricsAddr, "metrics-addr",
		getEnvOrDefault("HTCS_METRICS_ADDR", ":9090"),
		"Address to serve Prometheus metrics on")

	flag.Parse()

	if *showVersion {
		fmt.Printf("htcs-controller %s\n", version)
		os.Exit(0)
	}

	return cfgPath, poolSizeOverride, verbose, metricsAddr
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var parsed int
	if _, err := fmt.Sscanf(value, "%d", &parsed); err != nil {
		return defaultValue
	}
	return parsed
}

func setupLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}
