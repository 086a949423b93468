package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docchat-platform/internal/logger"
	"docchat-platform/models"
)

// MongoRepository persists records in three collections: documents, chunks
// and chat_messages.
type MongoRepository struct {
	documents *mongo.Collection
	chunks    *mongo.Collection
	messages  *mongo.Collection
}

var _ Repository = (*MongoRepository)(nil)

// messageRecord adds an insertion sequence so messages created within the
// same clock tick keep their order.
type messageRecord struct {
	models.ChatMessage `bson:",inline"`
	Seq                int64 `bson:"seq"`
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		documents: db.Collection("documents"),
		chunks:    db.Collection("chunks"),
		messages:  db.Collection("chat_messages"),
	}
}

func (r *MongoRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	if _, err := r.documents.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *MongoRepository) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &doc, nil
}

func (r *MongoRepository) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "uploaded_at", Value: -1}}).
		SetProjection(bson.M{"content": 0})
	cursor, err := r.documents.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []*models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return docs, nil
}

func (r *MongoRepository) UpdateContent(ctx context.Context, id, content string) error {
	res, err := r.documents.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusProcessing},
		bson.M{"$set": bson.M{"content": content}},
	)
	if err != nil {
		return fmt.Errorf("update content: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetDocument(ctx, id); err != nil {
			return err
		}
		return ErrDocumentFinalized
	}
	return nil
}

func (r *MongoRepository) SetStatus(ctx context.Context, id, status, errorMessage string) error {
	if !CanTransition(models.StatusProcessing, status) {
		return fmt.Errorf("%w: -> %s", ErrInvalidTransition, status)
	}

	update := bson.M{
		"status":       status,
		"processed_at": time.Now(),
	}
	if errorMessage != "" {
		update["error_message"] = errorMessage
	}

	// The status filter makes the transition a compare-and-set.
	res, err := r.documents.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusProcessing},
		bson.M{"$set": update},
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if res.MatchedCount == 0 {
		doc, err := r.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, doc.Status, status)
	}
	return nil
}

func (r *MongoRepository) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.documents.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	if _, err := r.chunks.DeleteMany(ctx, bson.M{"document_id": id}); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	remaining, err := r.documents.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if remaining == 0 {
		return r.ClearMessages(ctx)
	}
	return nil
}

func (r *MongoRepository) InsertChunks(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	parents := map[string]bool{}
	for _, c := range chunks {
		parents[c.DocumentID] = true
	}
	for id := range parents {
		if _, err := r.GetDocument(ctx, id); err != nil {
			return fmt.Errorf("document %s: %w", id, err)
		}
	}

	docs := make([]interface{}, len(chunks))
	for i, c := range chunks {
		docs[i] = c
	}
	if _, err := r.chunks.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	// A delete may have landed between the parent check and the insert.
	for id := range parents {
		if _, err := r.GetDocument(ctx, id); errors.Is(err, ErrNotFound) {
			if _, delErr := r.chunks.DeleteMany(ctx, bson.M{"document_id": id}); delErr != nil {
				logger.Error("Failed to remove orphaned chunks", "document_id", id, "error", delErr)
			}
			return fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
	}
	return nil
}

func (r *MongoRepository) ChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	opts := options.Find().SetSort(bson.D{{Key: "metadata.chunkIndex", Value: 1}})
	return r.findChunks(ctx, bson.M{"document_id": documentID}, opts)
}

func (r *MongoRepository) AllChunks(ctx context.Context) ([]*models.Chunk, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "metadata.chunkIndex", Value: 1}})
	return r.findChunks(ctx, bson.M{}, opts)
}

func (r *MongoRepository) findChunks(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Chunk, error) {
	cursor, err := r.chunks.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find chunks: %w", err)
	}
	defer cursor.Close(ctx)

	chunks := []*models.Chunk{}
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	return chunks, nil
}

func (r *MongoRepository) AppendMessages(ctx context.Context, messages ...*models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	base := time.Now().UnixNano()
	records := make([]interface{}, len(messages))
	ids := make([]string, len(messages))
	for i, m := range messages {
		records[i] = messageRecord{ChatMessage: *m, Seq: base + int64(i)}
		ids[i] = m.ID
	}

	if _, err := r.messages.InsertMany(ctx, records); err != nil {
		// Roll back whatever part of the batch landed.
		if _, delErr := r.messages.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); delErr != nil {
			logger.Error("Failed to roll back partial message write", "error", delErr)
		}
		return fmt.Errorf("insert messages: %w", err)
	}

	return r.trimHistory(ctx)
}

func (r *MongoRepository) trimHistory(ctx context.Context) error {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetSkip(HistoryLimit - 1).
		SetProjection(bson.M{"seq": 1})

	var oldestKept messageRecord
	err := r.messages.FindOne(ctx, bson.M{}, opts).Decode(&oldestKept)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find history bound: %w", err)
	}

	if _, err := r.messages.DeleteMany(ctx, bson.M{"seq": bson.M{"$lt": oldestKept.Seq}}); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}
	return nil
}

func (r *MongoRepository) RecentMessages(ctx context.Context, n int) ([]*models.ChatMessage, error) {
	// A zero limit means no limit to Mongo.
	if n == 0 {
		return []*models.ChatMessage{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: -1}})
	if n >= 0 {
		opts.SetLimit(int64(n))
	}
	cursor, err := r.messages.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cursor.Close(ctx)

	var records []messageRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	out := make([]*models.ChatMessage, len(records))
	for i, rec := range records {
		m := rec.ChatMessage
		out[len(records)-1-i] = &m
	}
	return out, nil
}

func (r *MongoRepository) ClearMessages(ctx context.Context) error {
	if _, err := r.messages.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}
