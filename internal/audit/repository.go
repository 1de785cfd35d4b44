package audit

import (
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	"bookit/pkg/model"
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Audit_logs"

type mongoAuditRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

// NewMongoAuditRepository returns an insert-only writer. Entries are never
// updated or deleted.
func NewMongoAuditRepository(cfg *config.Config) Writer {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAuditRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoAuditRepository) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert audit log entry: %w", err)
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return nil
}
