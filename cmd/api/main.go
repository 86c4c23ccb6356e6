package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow/config"
	"leadflow/internal/events"
	"leadflow/internal/handler"
	"leadflow/internal/imports"
	"leadflow/internal/monitor"
	redisclient "leadflow/internal/redis"
	"leadflow/internal/repository"
	"leadflow/internal/scheduler"
	"leadflow/internal/server"
	"leadflow/internal/services"
	"leadflow/internal/storage"
	"leadflow/pkg/database"
	"leadflow/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	defer l.Logger.Sync()
	logger.SetGlobalLogger(l)

	database.Connect(cfg)
	if err := database.Migrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	// runCtx outlives individual requests; cancelling it stops in-flight
	// batch processing during shutdown.
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	redisClient := redisclient.NewClient(redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if err := redisClient.Ping(runCtx).Err(); err != nil {
		l.Warnf("redis unavailable, progress events disabled: %v", err)
	} else {
		publisher = events.NewRedisPublisher(redisClient)
	}

	store, err := storage.NewClient(runCtx, storage.S3Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatalf("s3 client init failed: %v", err)
	}

	jobs := repository.NewJobRepository(database.DB)
	chunks := repository.NewChunkRepository(database.DB)
	batches := repository.NewBatchRepository(database.DB)
	rows := repository.NewRowRepository(database.DB)
	leads := repository.NewLeadRepository(database.DB)

	builder := imports.NewBatchBuilder(batches, store, l, imports.BuilderConfig{
		BatchSize:         cfg.BatchSize,
		MaxRecordsPerFile: cfg.MaxRecordsPerFile,
	})
	importer := imports.NewImporter(rows, leads, l)
	processor := imports.NewBatchProcessor(jobs, batches, rows, importer, publisher, l, imports.ProcessorConfig{
		Concurrency:     cfg.MaxConcurrentBatches,
		MaxRetries:      cfg.MaxBatchRetries,
		RetryBackoff:    time.Duration(cfg.RetryBackoffSec) * time.Second,
		MaxStoredErrors: cfg.MaxStoredErrors,
	})

	jobService := services.NewJobService(runCtx, jobs, chunks, batches, rows, store, builder, processor, publisher, l, services.JobServiceConfig{
		MaxFileSizeBytes:  cfg.MaxFileSizeBytes,
		MinChunkSizeBytes: cfg.MinChunkSizeBytes,
		MaxChunkSizeBytes: cfg.MaxChunkSizeBytes,
		DefaultBatchSize:  cfg.BatchSize,
		RetentionHours:    cfg.RetentionHours,
	})

	reporter := monitor.NewReporter(jobs, database.HealthCheck)

	cleanupScheduler := scheduler.New(jobService.CleanupExpired, time.Duration(cfg.CleanupIntervalMin)*time.Minute, l)
	cleanupScheduler.Start(runCtx)

	importHandler := handler.NewImportHandler(jobService)
	monitorHandler := handler.NewMonitorHandler(reporter)

	srv := server.New(cfg, l, importHandler, monitorHandler)

	go func() {
		if err := srv.Run(); err != nil {
			l.Errorf("http server error: %v", err)
			stopRun()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Infof("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf("http shutdown error: %v", err)
	}

	cleanupScheduler.Stop()
	stopRun()
}
