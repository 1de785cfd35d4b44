package mongo

import (
	"context"
	"fmt"
	"time"

	"bookit/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LockCollectionName = "Resource_locks"

// LockRepository serializes check-then-write sections that share a key.
// Touch must be called inside a transaction: two transactions touching the
// same key write the same document, so at most one of them commits and the
// other is re-run against the committed state.
type LockRepository interface {
	Touch(ctx context.Context, key string) error
}

type mongoLockRepository struct {
	collection *mongo.Collection
}

func NewLockRepository(db *mongo.Database) LockRepository {
	return &mongoLockRepository{
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoLockRepository) Touch(ctx context.Context, key string) error {
	filter := bson.M{"_id": key}
	update := bson.M{
		"$inc": bson.M{"version": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return nil
}

func BookingLockKey(resourceID string) string {
	return "booking:" + resourceID
}

func AvailabilityLockKey(resourceID string, day config.Weekday) string {
	return fmt.Sprintf("availability:%s:%s", resourceID, day)
}
