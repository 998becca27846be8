package ratelimit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// MongoStore keeps one counter document per key and window in the
// "rate_limits" collection. Stale windows are removed by the TTL index on
// expiresAt.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// Consume upserts the window document and increments its count in one
// FindOneAndUpdate, returning the post-increment value.
func (s *MongoStore) Consume(ctx context.Context, windowID, key string, windowStart, expiresAt time.Time) (int, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var window models.RateLimitWindow
	err := s.db.Collection("rate_limits").FindOneAndUpdate(ctx,
		bson.M{"_id": windowID},
		bson.M{
			"$inc": bson.M{"count": 1},
			"$setOnInsert": bson.M{
				"key":         key,
				"windowStart": windowStart,
				"expiresAt":   expiresAt,
			},
		},
		opts,
	).Decode(&window)
	if err != nil {
		return 0, err
	}
	return window.Count, nil
}
