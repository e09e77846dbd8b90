// internal/output/mongo.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/pricewatch-la/pricewatch/pkg/types"
)

// MongoArchiver mirrors raw ProductRecords to a MongoDB collection, one
// document per record per run. The archive is append-only; downstream
// analysis reads it, the engine never does.
type MongoArchiver struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoArchiver connects and verifies the deployment is reachable.
func NewMongoArchiver(ctx context.Context, uri, database, collection string, logger *zap.Logger) (*MongoArchiver, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo archive URI is required")
	}
	if database == "" || collection == "" {
		return nil, fmt.Errorf("mongo archive database and collection are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo archive: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo archive: %w", err)
	}

	return &MongoArchiver{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.Named("archive"),
	}, nil
}

// SaveRecords appends every record of the run as one document batch.
func (a *MongoArchiver) SaveRecords(ctx context.Context, records []types.ProductRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(records))
	archivedAt := time.Now().UTC()
	for _, record := range records {
		docs = append(docs, bson.M{
			"site_id":     record.SiteID,
			"url":         record.URL,
			"platform":    string(record.Platform),
			"record":      record,
			"archived_at": archivedAt,
		})
	}

	if _, err := a.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to archive records: %w", err)
	}
	a.logger.Info("archived records", zap.Int("count", len(docs)))
	return nil
}

// SaveLog is a no-op; scrape logs live in the SQL store.
func (a *MongoArchiver) SaveLog(context.Context, types.ScrapeLog) error { return nil }

// Close disconnects from the deployment.
func (a *MongoArchiver) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
