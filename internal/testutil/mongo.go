// Package testutil holds helpers for tests that run against a real MongoDB.
// Those tests carry the "integration" build tag and expect a replica set,
// since the booking writes use multi-document transactions.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"bookit/pkg/client"
	"bookit/pkg/config"
	"bookit/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultMongoURI   = "mongodb://localhost:27017/?replicaSet=rs0"
	ConnectionTimeout = 10 * time.Second
)

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// NewMongoHelper connects to MONGO_URI (or the local default) and creates a
// throwaway database that is dropped when the test finishes.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = DefaultMongoURI
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := fmt.Sprintf("bookit_test_%d", time.Now().UnixNano())
	h := &MongoHelper{
		Client:   mongoClient,
		Database: mongoClient.Database(dbName),
		DBName:   dbName,
	}
	t.Cleanup(func() { h.close(t) })
	return h
}

// Config returns a service configuration bound to the helper's database.
func (m *MongoHelper) Config() *config.Config {
	return &config.Config{
		MongoDatabaseName:    m.DBName,
		ReadTimeout:          5 * time.Second,
		WriteTimeout:         5 * time.Second,
		AvailabilityTimeZone: "UTC",
		Log:                  logger.Discard(),
		Client:               &client.Client{Mongo: m.Client},
	}
}

// CreateCollections makes sure the named collections exist. Transactions
// cannot always create collections implicitly.
func (m *MongoHelper) CreateCollections(t *testing.T, names ...string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, name := range names {
		if err := m.Database.CreateCollection(ctx, name); err != nil {
			t.Fatalf("failed to create collection %s: %v", name, err)
		}
	}
}

func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if filter == nil {
		filter = bson.M{}
	}
	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}

func (m *MongoHelper) close(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop %s: %v", m.DBName, err)
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}
