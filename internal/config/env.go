package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Storage
	Store    string // memory or mongo
	MongoURI string
	DBName   string

	// Redis backs rate limiting and the ingestion queue
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Ingestion
	IngestMode     string // inline or queue
	UploadDir      string
	MaxFileSize    int64
	ChunkMaxSize   int
	FileBatchSize  int
	PageBatchSize  int
	CrawlMaxPages  int
	CrawlTimeout   time.Duration
	CrawlRenderJS  bool
	IngestTimeout  time.Duration
	JanitorEvery   time.Duration
	TempFileMaxAge time.Duration

	// TrackedTerms maps retrieval keywords to synonyms, from
	// TRACKED_TERMS="contract:agreement|deal,invoice:bill"
	TrackedTerms map[string][]string

	// Retrieval and answer composition
	Vectorizer           string // hash or gemini
	Composer             string // template or gemini
	GeminiAPIKey         string
	GeminiTier           string
	GeminiModel          string
	GeminiEmbeddingModel string

	RateLimitReqs   int
	RateLimitWindow int

	OTelEnabled  bool
	OTelEndpoint string
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		Store:    getEnv("STORE", "memory"),
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/docchat"),
		DBName:   getEnv("DB_NAME", "docchat"),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		IngestMode:     getEnv("INGEST_MODE", "inline"),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB
		ChunkMaxSize:   getEnvInt("CHUNK_MAX_SIZE", 6000),
		FileBatchSize:  getEnvInt("FILE_BATCH_SIZE", 100),
		PageBatchSize:  getEnvInt("PAGE_BATCH_SIZE", 50),
		CrawlMaxPages:  getEnvInt("CRAWL_MAX_PAGES", 10),
		CrawlTimeout:   getEnvDuration("CRAWL_TIMEOUT", 30*time.Second),
		CrawlRenderJS:  getEnvBool("CRAWL_RENDER_JS", false),
		IngestTimeout:  getEnvDuration("INGEST_TIMEOUT", 30*time.Minute),
		JanitorEvery:   getEnvDuration("JANITOR_INTERVAL", time.Hour),
		TempFileMaxAge: getEnvDuration("TEMP_FILE_MAX_AGE", 24*time.Hour),
		TrackedTerms:   getEnvTerms("TRACKED_TERMS"),

		Vectorizer:           getEnv("VECTORIZER", "hash"),
		Composer:             getEnv("COMPOSER", "template"),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiTier:           getEnv("GEMINI_TIER", "free"),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_ENDPOINT", "localhost:4317"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks option combinations that cannot work at runtime
func (c *Config) Validate() error {
	switch c.Store {
	case "memory", "mongo":
	default:
		return fmt.Errorf("STORE must be memory or mongo, got %q", c.Store)
	}

	switch c.IngestMode {
	case "inline":
	case "queue":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when INGEST_MODE=queue")
		}
		if c.Store != "mongo" {
			return fmt.Errorf("INGEST_MODE=queue requires STORE=mongo so the worker shares state")
		}
	default:
		return fmt.Errorf("INGEST_MODE must be inline or queue, got %q", c.IngestMode)
	}

	if (c.Vectorizer == "gemini" || c.Composer == "gemini") && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required for the gemini vectorizer or composer")
	}

	if c.ChunkMaxSize <= 0 || c.FileBatchSize <= 0 || c.PageBatchSize <= 0 {
		return fmt.Errorf("chunk and batch sizes must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvTerms parses "term:syn1|syn2,term2" into a term vocabulary. An
// unset variable yields nil so callers apply their defaults.
func getEnvTerms(key string) map[string][]string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	terms := make(map[string][]string)
	for _, entry := range strings.Split(value, ",") {
		term, synonyms, _ := strings.Cut(entry, ":")
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		var syns []string
		for _, syn := range strings.Split(synonyms, "|") {
			if syn = strings.TrimSpace(syn); syn != "" {
				syns = append(syns, syn)
			}
		}
		terms[term] = syns
	}
	return terms
}
