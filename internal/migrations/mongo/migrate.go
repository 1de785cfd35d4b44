package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookit/internal/audit"
	availabilityrepo "bookit/internal/availability/repository"
	bookingsrepo "bookit/internal/bookings/repository"
	"bookit/internal/migrations/mongo/validators"
	notificationsrepo "bookit/internal/notifications/repository"
	mongotx "bookit/pkg/db/mongo"
	"bookit/pkg/logger"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		// overlap probe: resource, blocking status, then the window bounds
		{Keys: bson.D{
			{Key: "resource_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start_time", Value: 1}}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "start_time", Value: 1}}},
	}

	BookingApprovalsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("booking_id_unique"),
		},
	}

	AvailabilityRulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "resource_id", Value: 1},
			{Key: "day_of_week", Value: 1},
			{Key: "start_time", Value: 1},
		}},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}}},
	}

	AuditLogsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "entity", Value: 1},
			{Key: "entity_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
)

// Collection describes one collection the services expect to exist.
type Collection struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists every collection owned by this repository. The lock
// collection has no schema but must exist before the first transaction
// writes to it.
func Collections() []Collection {
	return []Collection{
		{Name: bookingsrepo.CollectionName, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		{Name: bookingsrepo.ApprovalCollectionName, Indexes: BookingApprovalsIndexes, Validator: validators.BookingApprovalValidator},
		{Name: availabilityrepo.CollectionName, Indexes: AvailabilityRulesIndexes, Validator: validators.AvailabilityRuleValidator},
		{Name: notificationsrepo.CollectionName, Indexes: NotificationsIndexes, Validator: validators.NotificationValidator},
		{Name: audit.CollectionName, Indexes: AuditLogsIndexes, Validator: validators.AuditLogValidator},
		{Name: mongotx.LockCollectionName},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
