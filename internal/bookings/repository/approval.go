package repository

import (
	bookingserrors "bookit/internal/bookings/errors"
	"bookit/pkg/config"
	mongotx "bookit/pkg/db/mongo"
	"bookit/pkg/model"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ApprovalCollectionName = "Booking_approvals"

// ApprovalRepository stores the single admin decision of a booking.
type ApprovalRepository interface {
	Upsert(ctx context.Context, approval *model.BookingApproval) error
	FindByBookingID(ctx context.Context, bookingID string) (*model.BookingApproval, error)
}

type mongoApprovalRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoApprovalRepository(cfg *config.Config) ApprovalRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoApprovalRepository{
		cfg:        cfg,
		collection: db.Collection(ApprovalCollectionName),
	}
}

// Upsert keys on booking_id, which carries a unique index.
func (r *mongoApprovalRepository) Upsert(ctx context.Context, approval *model.BookingApproval) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"booking_id": approval.BookingID}
	update := bson.M{
		"$set": bson.M{
			"status":      approval.Status,
			"approver_id": approval.ApproverID,
			"comments":    approval.Comments,
			"approved_at": approval.ApprovedAt,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored model.BookingApproval
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return fmt.Errorf("failed to upsert booking approval: %w", err)
	}
	approval.ID = stored.ID
	return nil
}

func (r *mongoApprovalRepository) FindByBookingID(ctx context.Context, bookingID string) (*model.BookingApproval, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var approval model.BookingApproval
	err := r.collection.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&approval)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrApprovalNotFound
		}
		return nil, fmt.Errorf("failed to find booking approval: %w", err)
	}
	return &approval, nil
}
