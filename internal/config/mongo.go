package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if err := EnsureIndexes(ctx, client.Database(cfg.DBName)); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the indexes the repository queries rely on. It is
// idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	documentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "uploaded_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := db.Collection("documents").Indexes().CreateMany(ctx, documentIndexes); err != nil {
		return err
	}

	// Cascade deletes and per-document lookups filter on document_id
	chunkIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "metadata.chunkIndex", Value: 1}}},
	}
	if _, err := db.Collection("chunks").Indexes().CreateMany(ctx, chunkIndexes); err != nil {
		return err
	}

	messageIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}},
	}
	if _, err := db.Collection("chat_messages").Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return err
	}

	return nil
}
