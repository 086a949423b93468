package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"docchat-platform/models"
)

// PurgeOrphanChunks deletes chunks whose parent document no longer exists
// and returns how many were removed.
func (r *MongoRepository) PurgeOrphanChunks(ctx context.Context) (int64, error) {
	parents, err := r.chunks.Distinct(ctx, "document_id", bson.M{})
	if err != nil {
		return 0, fmt.Errorf("distinct chunk parents: %w", err)
	}

	var removed int64
	for _, p := range parents {
		id, ok := p.(string)
		if !ok {
			continue
		}
		n, err := r.documents.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return removed, fmt.Errorf("count document %s: %w", id, err)
		}
		if n > 0 {
			continue
		}
		res, err := r.chunks.DeleteMany(ctx, bson.M{"document_id": id})
		if err != nil {
			return removed, fmt.Errorf("delete orphan chunks of %s: %w", id, err)
		}
		removed += res.DeletedCount
	}
	return removed, nil
}

// FailStale marks documents processing since before cutoff as failed, for
// runs lost to a crashed process. It returns the number updated.
func (r *MongoRepository) FailStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()
	res, err := r.documents.UpdateMany(ctx,
		bson.M{"status": models.StatusProcessing, "uploaded_at": bson.M{"$lt": cutoff}},
		bson.M{"$set": bson.M{
			"status":        models.StatusFailed,
			"error_message": "processing did not finish",
			"processed_at":  now,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale documents: %w", err)
	}
	return res.ModifiedCount, nil
}

// StatusCounts returns the number of documents per status.
func (r *MongoRepository) StatusCounts(ctx context.Context) (map[string]int64, error) {
	cur, err := r.documents.Aggregate(ctx, bson.A{
		bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate statuses: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode statuses: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
