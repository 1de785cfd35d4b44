package repository

import (
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	"bookit/pkg/model"
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "bookit/internal/bookings/errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Bookings"
)

// Filter narrows list and search queries. Empty fields are ignored; From and
// To select bookings overlapping [From, To).
type Filter struct {
	UserID         string
	OrganizationID string
	ResourceID     string
	Statuses       []config.BookingStatus
	From           *time.Time
	To             *time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	ExistsOverlapping(ctx context.Context, resourceID string, start, end time.Time, excludeID string, statuses []config.BookingStatus) (bool, error)
	UpdateStatus(ctx context.Context, change *model.BookingStatusChange) error
	FindByFilter(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error)
	CountByFilter(ctx context.Context, filter Filter) (int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

// ExistsOverlapping stops at the first blocking booking whose window
// intersects [start, end).
func (r *mongoBookingRepository) ExistsOverlapping(
	ctx context.Context,
	resourceID string,
	start, end time.Time,
	excludeID string,
	statuses []config.BookingStatus,
) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"resource_id": resourceID,
		"status":      bson.M{"$in": statuses},
		"start_time":  bson.M{"$lt": end},
		"end_time":    bson.M{"$gt": start},
	}
	if excludeID != "" {
		excludeOID, err := primitive.ObjectIDFromHex(excludeID)
		if err != nil {
			return false, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, excludeID)
		}
		filter["_id"] = bson.M{"$ne": excludeOID}
	}

	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := r.collection.FindOne(ctx, filter, opts).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check overlapping bookings: %w", err)
	}
	return true, nil
}

// UpdateStatus moves a booking from change.From to change.To. The update is
// conditional on the current status so a concurrent transition is never
// overwritten.
func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, change *model.BookingStatusChange) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(change.BookingID)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, change.BookingID)
	}

	if change.UpdatedAt.IsZero() {
		change.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	filter := bson.M{"_id": objectID, "status": change.From}
	update := bson.M{
		"$set": bson.M{
			"status":     change.To,
			"updated_at": change.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrStatusChanged
	}
	return nil
}

func (r *mongoBookingRepository) FindByFilter(ctx context.Context, filter Filter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountByFilter(ctx context.Context, filter Filter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func buildFilter(f Filter) bson.M {
	filter := bson.M{}

	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}
	if f.OrganizationID != "" {
		filter["organization_id"] = f.OrganizationID
	}
	if f.ResourceID != "" {
		filter["resource_id"] = f.ResourceID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.To != nil {
		filter["start_time"] = bson.M{"$lt": *f.To}
	}
	if f.From != nil {
		filter["end_time"] = bson.M{"$gt": *f.From}
	}

	return filter
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
