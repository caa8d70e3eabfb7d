package sink

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ppiankov/gazetteer/internal/model"
)

// Collection names used by MongoSink
const (
	IncorporationsCollection = "incorporations"
	NameChangesCollection    = "name_changes"
)

// inserter is the part of *mongo.Collection the sink needs
type inserter interface {
	InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

// incorporationDoc is an incorporation tagged with its source bulletin
type incorporationDoc struct {
	model.Incorporation `bson:",inline"`
	Document            string `bson:"document"`
}

// nameChangeDoc is a name change tagged with its source bulletin
type nameChangeDoc struct {
	model.NameChange `bson:",inline"`
	Document         string `bson:"document"`
}

// MongoSink inserts per-bulletin records into MongoDB. Master batches repeat
// records already inserted per bulletin and are ignored.
type MongoSink struct {
	client         *mongo.Client
	incorporations inserter
	nameChanges    inserter
}

// NewMongoSink connects to uri and verifies the connection
func NewMongoSink(ctx context.Context, uri, database string) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	return &MongoSink{
		client:         client,
		incorporations: db.Collection(IncorporationsCollection),
		nameChanges:    db.Collection(NameChangesCollection),
	}, nil
}

// Write inserts a bulletin's records
func (s *MongoSink) Write(ctx context.Context, batch Batch) error {
	if batch.Master {
		return nil
	}

	if len(batch.Incorporations) > 0 {
		docs := make([]interface{}, 0, len(batch.Incorporations))
		for _, inc := range batch.Incorporations {
			docs = append(docs, incorporationDoc{Incorporation: inc, Document: batch.Key})
		}
		if _, err := s.incorporations.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert incorporations for %s: %w", batch.Key, err)
		}
	}

	if len(batch.NameChanges) > 0 {
		docs := make([]interface{}, 0, len(batch.NameChanges))
		for _, nc := range batch.NameChanges {
			docs = append(docs, nameChangeDoc{NameChange: nc, Document: batch.Key})
		}
		if _, err := s.nameChanges.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert name changes for %s: %w", batch.Key, err)
		}
	}

	return nil
}

// Close disconnects the client
func (s *MongoSink) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
