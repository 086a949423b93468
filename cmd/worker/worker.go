package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"docchat-platform/internal/app"
	"docchat-platform/internal/config"
	"docchat-platform/internal/ingest"
	"docchat-platform/internal/logger"
	"docchat-platform/internal/queue"
	"docchat-platform/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required for the worker")
	}
	redisOpt, err := app.AsynqRedisOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}

	shutdownTracer := func() {}
	if cfg.OTelEnabled {
		shutdownTracer, err = telemetry.InitTracer(telemetry.ServiceName+"-worker", cfg.OTelEndpoint, cfg.GinMode)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
			shutdownTracer = func() {}
		}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	// The worker runs ingestion in process, so no enqueuer
	ctx := context.Background()
	services, err := app.New(ctx, cfg, metrics, nil)
	if err != nil {
		log.Fatal("Failed to initialize services:", err)
	}

	janitor := ingest.NewJanitor(services.Storage, cfg.TempFileMaxAge)
	if err := janitor.Start(cfg.JanitorEvery); err != nil {
		logger.Warn("Upload janitor not started", "error", err)
	}
	defer janitor.Stop()

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 20,
			Queues: map[string]int{
				queue.QueueIngest: 1,
			},
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	queue.NewTaskProcessor(services.Ingest).Register(mux)

	logger.Info("Starting ingestion worker", "redis", redisOpt.Addr, "queue", queue.QueueIngest, "concurrency", 20)

	if err := server.Start(mux); err != nil {
		log.Fatal("Could not start worker:", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	server.Shutdown()

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := services.Close(closeCtx); err != nil {
		logger.Error("Service shutdown incomplete", "error", err)
	}
}
