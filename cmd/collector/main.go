package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"solaredge-collector/internal/config"
	"solaredge-collector/internal/poller"
	"solaredge-collector/internal/recorder"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config/config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		logger.Info("shutting down", "signal", s.String())
		cancel()
	}()

	coord := poller.New(cfg.Gateways, logger)

	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		rec, err = recorder.New(cfg.Recorder, logger)
		if err != nil {
			log.Fatalf("recorder init: %v", err)
		}
		defer rec.Close()
		coord.OnSnapshot = rec.HandleSnapshot
		coord.OnDiscovery = rec.HandleDiscovery
		coord.OnHealth = rec.HandleHealth
	} else {
		coord.OnSnapshot = func(snap *poller.Snapshot) {
			v := snap.Values["AC_Power"]
			if b, ok := snap.Values["B_DC_Power"]; ok && !v.Available() {
				v = b
			}
			logger.Info("snapshot",
				"device", snap.Device.ID(), "cycle", snap.Cycle,
				"power_w", v.String(), "status", snap.StatusText())
		}
		coord.OnHealth = func(ev poller.HealthEvent) {
			logger.Warn("health transition",
				"device", ev.Device.ID(), "status", ev.Status.String(),
				"failures", ev.Failures, "error", ev.Err)
		}
	}

	if err := coord.Run(ctx); err != nil {
		logger.Error("coordinator exited", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
