// Package main is the entry point for the ForecastDesk prediction adjustment
// service. It wires the databases, workspace manager, event bus, background
// jobs, and HTTP server, then blocks until a shutdown signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forecastdesk/internal/clients/s3archive"
	"forecastdesk/internal/config"
	"forecastdesk/internal/database"
	"forecastdesk/internal/events"
	"forecastdesk/internal/modules/audit"
	"forecastdesk/internal/modules/workspace"
	"forecastdesk/internal/scheduler"
	"forecastdesk/internal/server"
	"forecastdesk/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Float64("percentage_cap", cfg.PercentageCap).
		Msg("Starting ForecastDesk")

	// The audit trail gets the ledger profile (synchronous=FULL); the snapshot
	// cache is rebuildable, so it runs with the fast cache profile.
	auditDB, err := database.New(database.Config{
		Path:    cfg.AuditDBPath(),
		Profile: database.ProfileLedger,
		Name:    "audit",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audit database")
	}
	defer auditDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	auditRepo, err := audit.NewRepository(auditDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audit repository")
	}

	snapshotCache, err := workspace.NewSnapshotCache(cacheDB.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot cache")
	}

	bus := events.NewBus(log)

	manager := workspace.NewManager(workspace.ManagerConfig{
		PercentageCap: cfg.PercentageCap,
		IdleTTL:       cfg.WorkspaceTTL,
		Persister:     auditRepo,
		Cache:         snapshotCache,
		Bus:           bus,
		Log:           log,
	})

	// S3 upload is optional; without a bucket, exports stay on local disk
	var uploader scheduler.Uploader
	if cfg.Export.S3Bucket != "" {
		s3Client, err := s3archive.New(context.Background(), s3archive.Config{
			Bucket: cfg.Export.S3Bucket,
			Region: cfg.Export.S3Region,
			Prefix: cfg.Export.S3Prefix,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 archive client")
		}
		uploader = s3Client
		log.Info().Str("bucket", cfg.Export.S3Bucket).Msg("S3 export uploads enabled")
	}

	sched := scheduler.New(log)

	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{"@every 5m", scheduler.NewWorkspaceCleanupJob(manager, log)},
		{"@every 1h", scheduler.NewCheckpointJob([]*database.DB{auditDB, cacheDB}, log)},
		{"0 0 2 * * *", scheduler.NewExportUploadJob(manager, cfg.Export.Dir, uploader, log)},
	}
	for _, j := range jobs {
		if err := sched.AddJob(j.schedule, j.job); err != nil {
			log.Fatal().Err(err).Str("job", j.job.Name()).Msg("Failed to register job")
		}
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		Manager: manager,
		Bus:     bus,
		AuditDB: auditDB,
		CacheDB: cacheDB,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Final checkpoint so the WAL files are folded in before exit
	if err := auditDB.Checkpoint(); err != nil {
		log.Error().Err(err).Msg("Final audit checkpoint failed")
	}
	if err := cacheDB.Checkpoint(); err != nil {
		log.Error().Err(err).Msg("Final cache checkpoint failed")
	}

	log.Info().Msg("Shutdown complete")
}
