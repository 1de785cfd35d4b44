package repository

import (
	availabilityerrors "bookit/internal/availability/errors"
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	"bookit/pkg/model"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Availability_rules"

type AvailabilityRepository interface {
	Create(ctx context.Context, rule *model.AvailabilityRule) error
	FindByID(ctx context.Context, id string) (*model.AvailabilityRule, error)
	FindByResource(ctx context.Context, resourceID string) ([]*model.AvailabilityRule, error)
	FindByResourceAndDay(ctx context.Context, resourceID string, day config.Weekday) ([]*model.AvailabilityRule, error)
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoAvailabilityRepository) Create(ctx context.Context, rule *model.AvailabilityRule) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	rule.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, rule)
	if err != nil {
		return fmt.Errorf("failed to create availability rule: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rule.ID = oid.Hex()
	}
	return nil
}

func (r *mongoAvailabilityRepository) FindByID(ctx context.Context, id string) (*model.AvailabilityRule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	var rule model.AvailabilityRule
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&rule)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find availability rule: %w", err)
	}
	return &rule, nil
}

func (r *mongoAvailabilityRepository) FindByResource(ctx context.Context, resourceID string) ([]*model.AvailabilityRule, error) {
	return r.find(ctx, bson.M{"resource_id": resourceID})
}

func (r *mongoAvailabilityRepository) FindByResourceAndDay(ctx context.Context, resourceID string, day config.Weekday) ([]*model.AvailabilityRule, error) {
	return r.find(ctx, bson.M{"resource_id": resourceID, "day_of_week": day})
}

func (r *mongoAvailabilityRepository) find(ctx context.Context, filter bson.M) ([]*model.AvailabilityRule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability rules: %w", err)
	}
	defer cursor.Close(ctx)

	var rules []*model.AvailabilityRule
	if err = cursor.All(ctx, &rules); err != nil {
		return nil, fmt.Errorf("failed to decode availability rules: %w", err)
	}
	return rules, nil
}

func (r *mongoAvailabilityRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", availabilityerrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete availability rule: %w", err)
	}
	if result.DeletedCount == 0 {
		return availabilityerrors.ErrNotFound
	}
	return nil
}

func (r *mongoAvailabilityRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
