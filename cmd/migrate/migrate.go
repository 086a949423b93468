package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"docchat-platform/internal/config"
	"docchat-platform/internal/logger"
	"docchat-platform/internal/repository"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  ensure-indexes   - Create the collection indexes")
		fmt.Println("  purge-orphans    - Delete chunks whose document no longer exists")
		fmt.Println("  fail-stale [age] - Mark documents processing longer than age (default 1h) as failed")
		fmt.Println("  status           - Print document counts per status")
		os.Exit(1)
	}

	command := os.Args[1]

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.InitLogger(cfg)

	// ConnectMongoDB also ensures indexes
	client, err := config.ConnectMongoDB(cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	repo := repository.NewMongoRepository(client.Database(cfg.DBName))

	switch command {
	case "ensure-indexes":
		logger.Info("Indexes ensured", "db", cfg.DBName)

	case "purge-orphans":
		removed, err := repo.PurgeOrphanChunks(ctx)
		if err != nil {
			logger.Error("Purge failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Orphan chunks purged", "removed", removed)

	case "fail-stale":
		age := time.Hour
		if len(os.Args) > 2 {
			if age, err = time.ParseDuration(os.Args[2]); err != nil {
				logger.Error("Invalid age", "value", os.Args[2], "error", err)
				os.Exit(1)
			}
		}
		updated, err := repo.FailStale(ctx, time.Now().Add(-age))
		if err != nil {
			logger.Error("Failing stale documents failed", "error", err)
			os.Exit(1)
		}
		logger.Info("Stale documents failed", "updated", updated, "age", age.String())

	case "status":
		counts, err := repo.StatusCounts(ctx)
		if err != nil {
			logger.Error("Status query failed", "error", err)
			os.Exit(1)
		}
		for status, n := range counts {
			fmt.Printf("%-12s %d\n", status, n)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}
