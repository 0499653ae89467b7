package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson" // Use bson for index keys
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	err = createIndexes(ctx, client.Database(cfg.DBName), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(ctx context.Context, db *mongo.Database, cfg *Config) error {
	// One suggested-questions record per (document, file, organization)
	_, err := db.Collection("suggested_questions").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "document_id", Value: 1},
				{Key: "file_id", Value: 1},
				{Key: "organization_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "file_id", Value: 1}, {Key: "organization_id", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("files").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "organization_id", Value: 1}}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}}},
	})
	if err != nil {
		return err
	}

	// Chunk collections back the vector indexes; these cover the filter paths
	// used by chunk listing. The $vectorSearch index itself is managed in Atlas.
	for _, name := range []string{cfg.PDFIndexCollection, cfg.VideoIndexCollection} {
		_, err = db.Collection(name).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{Keys: bson.D{{Key: "metadata.document_id", Value: 1}, {Key: "metadata.chunk_index", Value: 1}}},
			{Keys: bson.D{{Key: "metadata.source", Value: 1}}},
		})
		if err != nil {
			return err
		}
	}

	return nil
}
