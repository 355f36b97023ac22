package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"camgate/internal/alarm"
	"camgate/internal/auth"
	"camgate/internal/config"
	"camgate/internal/database"
	"camgate/internal/detect"
	"camgate/internal/devclient"
	"camgate/internal/events"
	"camgate/internal/logging"
	"camgate/internal/recorder"
	"camgate/internal/registry"
	"camgate/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "camgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, "camgate")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	for _, dir := range []string{cfg.DataDir, cfg.RecordingDir(), cfg.EventDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	db, err := database.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	reg, err := registry.New(db, log)
	if err != nil {
		return fmt.Errorf("failed to load camera registry: %w", err)
	}
	log.Info("camera registry loaded", zap.Int("cameras", len(reg.List())))

	devices := devclient.New(reg, log)

	store, err := events.NewStore(db, log)
	if err != nil {
		return fmt.Errorf("failed to load event store: %w", err)
	}

	alarmState := alarm.New(alarm.NewSoundPlayer(cfg.AlarmSound, log), log)

	detector := detect.Build(cfg.DetectorEndpoint, log)
	log.Info("detector selected", zap.String("detector", detector.Name()))

	pipeline := detect.NewPipeline(devices, detector, store, alarmState, cfg.EventDir(), log)
	rec := recorder.NewSupervisor(devices, reg, cfg.RecordingDir(), log)

	authn := auth.NewAuthenticator(cfg.AuthEnabled, cfg.AuthUsername, cfg.AuthPassword)
	if cfg.AuthEnabled {
		log.Info("dashboard auth enabled", zap.String("username", cfg.AuthUsername))
	}

	srv := server.New(cfg, log, reg, devices, rec, pipeline, store, alarmState, authn)

	// Flush in-flight recordings before the process exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("shutting down", zap.String("signal", sig.String()))
		rec.StopAll()
		log.Sync()
		os.Exit(0)
	}()

	return srv.Run(cfg.ListenAddr)
}
