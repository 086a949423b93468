// Package app assembles the services shared by the API server and the
// ingestion worker from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"docchat-platform/internal/ai"
	"docchat-platform/internal/chat"
	"docchat-platform/internal/chunker"
	"docchat-platform/internal/config"
	"docchat-platform/internal/crawler"
	"docchat-platform/internal/extract"
	"docchat-platform/internal/ingest"
	"docchat-platform/internal/logger"
	"docchat-platform/internal/repository"
	"docchat-platform/internal/retrieval"
	"docchat-platform/internal/telemetry"
	"docchat-platform/internal/vectorizer"
)

// App holds the wired services.
type App struct {
	Config     *config.Config
	Repo       repository.Repository
	Storage    *ingest.FileStorage
	Vectorizer vectorizer.Vectorizer
	Ingest     *ingest.Orchestrator
	Chat       *chat.Service
	Metrics    *telemetry.Metrics

	mongo  *mongo.Client
	gemini *ai.GeminiClient
}

// New builds an App. enqueuer may be nil for in-process ingestion.
func New(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics, enqueuer ingest.Enqueuer) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics}

	switch cfg.Store {
	case "mongo":
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, err
		}
		a.mongo = client
		a.Repo = repository.NewMongoRepository(client.Database(cfg.DBName))
		logger.Info("Using MongoDB store", "db", cfg.DBName)
	default:
		a.Repo = repository.NewMemoryRepository()
		logger.Info("Using in-memory store")
	}

	if cfg.Vectorizer == "gemini" || cfg.Composer == "gemini" {
		client, err := ai.NewGeminiClient(ctx, ai.Options{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			EmbeddingModel: cfg.GeminiEmbeddingModel,
			Tier:           cfg.GeminiTier,
			Metrics:        metrics,
		})
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
		}
		a.gemini = client
	}

	if cfg.Vectorizer == "gemini" {
		a.Vectorizer = vectorizer.NewEmbeddingVectorizer(a.gemini, vectorizer.Dimensions)
	} else {
		a.Vectorizer = vectorizer.NewHashVectorizer(vectorizer.Dimensions)
	}

	var composer chat.Composer = chat.TemplateComposer{}
	if cfg.Composer == "gemini" {
		composer = chat.NewGeminiComposer(a.gemini)
	}

	storage, err := ingest.NewFileStorage(cfg.UploadDir, cfg.MaxFileSize)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.Storage = storage

	cr := crawler.New(crawler.Config{
		MaxPages:    cfg.CrawlMaxPages,
		Timeout:     cfg.CrawlTimeout,
		Parallelism: 4,
		Delay:       500 * time.Millisecond,
		RenderJS:    cfg.CrawlRenderJS,
	})

	a.Ingest = ingest.NewOrchestrator(
		a.Repo,
		extract.NewDefaultDispatcher(),
		chunker.New(cfg.ChunkMaxSize),
		a.Vectorizer,
		cr,
		storage,
		ingest.Options{
			FileBatchSize: cfg.FileBatchSize,
			PageBatchSize: cfg.PageBatchSize,
			JobTimeout:    cfg.IngestTimeout,
			Metrics:       metrics,
			Enqueuer:      enqueuer,
		},
	)

	a.Chat = chat.NewService(a.Repo, a.Vectorizer, retrieval.NewAugmenter(cfg.TrackedTerms), composer, metrics)
	return a, nil
}

// Ready pings the backing store. The memory store is always ready.
func (a *App) Ready(ctx context.Context) error {
	if a.mongo == nil {
		return nil
	}
	return a.mongo.Ping(ctx, nil)
}

// Close waits for in-process ingestion runs, then releases clients.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Ingest != nil {
		if err := a.Ingest.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("ingestion shutdown: %w", err))
		}
	}
	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
