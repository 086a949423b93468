package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"docchat-platform/internal/app"
	"docchat-platform/internal/config"
	"docchat-platform/internal/ingest"
	"docchat-platform/internal/logger"
	"docchat-platform/internal/queue"
	"docchat-platform/internal/telemetry"
	"docchat-platform/routes"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracer := func() {}
	if cfg.OTelEnabled {
		shutdownTracer, err = telemetry.InitTracer(telemetry.ServiceName, cfg.OTelEndpoint, cfg.GinMode)
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

	// Queue mode hands ingestion runs to the worker
	var enqueuer ingest.Enqueuer
	if cfg.IngestMode == "queue" {
		redisOpt, err := app.AsynqRedisOpt(cfg)
		if err != nil {
			log.Fatal("Invalid Redis configuration:", err)
		}
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		enqueuer = queue.NewEnqueuer(client, cfg.IngestTimeout)
	}

	ctx := context.Background()
	services, err := app.New(ctx, cfg, metrics, enqueuer)
	if err != nil {
		log.Fatal("Failed to initialize services:", err)
	}

	// Redis is optional for the API; without it requests are not rate limited
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = config.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Rate limiting disabled", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	janitor := ingest.NewJanitor(services.Storage, cfg.TempFileMaxAge)
	if err := janitor.Start(cfg.JanitorEvery); err != nil {
		logger.Warn("Upload janitor not started", "error", err)
	}
	defer janitor.Stop()

	router := routes.NewRouter(routes.Dependencies{
		Repo:            services.Repo,
		Ingest:          services.Ingest,
		Chat:            services.Chat,
		Metrics:         metrics,
		CORSOrigins:     cfg.CORSOrigins,
		MaxFileSize:     cfg.MaxFileSize,
		Redis:           rdb,
		RateLimitReqs:   cfg.RateLimitReqs,
		RateLimitWindow: time.Duration(cfg.RateLimitWindow) * time.Second,
		Ready:           services.Ready,
		Tracing:         cfg.OTelEnabled,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "store", cfg.Store, "ingest_mode", cfg.IngestMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := services.Close(shutdownCtx); err != nil {
		logger.Error("Service shutdown incomplete", "error", err)
	}

	logger.Info("Server exited")
}
