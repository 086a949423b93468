package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"docchat-platform/internal/chat"
	"docchat-platform/internal/ingest"
	"docchat-platform/internal/repository"
	"docchat-platform/internal/telemetry"
	"docchat-platform/middleware"
	"docchat-platform/utils"
)

// multipartOverhead is allowed on top of MaxFileSize for form framing.
const multipartOverhead = 1 << 20

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	Repo        repository.Repository
	Ingest      *ingest.Orchestrator
	Chat        *chat.Service
	Metrics     *telemetry.Metrics
	CORSOrigins []string
	MaxFileSize int64

	// Redis enables rate limiting when set
	Redis           *redis.Client
	RateLimitReqs   int
	RateLimitWindow time.Duration

	// Ready reports backing store health for /health
	Ready   func(ctx context.Context) error
	Tracing bool
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger())
	if deps.Tracing {
		router.Use(middleware.TracingMiddleware(), middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(deps.Metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(deps.CORSOrigins))

	router.GET("/health", HandleHealth(deps.Ready))

	api := router.Group("/api")
	if deps.Redis != nil {
		api.Use(middleware.RateLimitMiddleware(deps.Redis, deps.RateLimitReqs, deps.RateLimitWindow))
	}

	SetupDocumentRoutes(api, deps.Repo, deps.Ingest, deps.MaxFileSize)
	SetupChatRoutes(api, deps.Chat)

	return router
}

// HandleHealth reports liveness and, when ready is set, store reachability.
func HandleHealth(ready func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				utils.RespondWithError(c, http.StatusServiceUnavailable, "unhealthy",
					"Backing store unreachable", gin.H{"error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	}
}
