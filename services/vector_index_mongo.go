package services

import (
	"context"
	"fmt"

	"eduagent-knowledge/internal/ai"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVectorIndex stores one source type's chunks in a collection with an
// Atlas Vector Search index over the "embedding" field. Entries are keyed by
// chunk id so writes are idempotent upserts.
type MongoVectorIndex struct {
	collection *mongo.Collection
	indexName  string
	embedder   ai.Embedder
}

type mongoVectorDoc struct {
	ID        string         `bson:"_id"`
	Text      string         `bson:"text"`
	Embedding []float32      `bson:"embedding,omitempty"`
	Metadata  map[string]any `bson:"metadata"`
	Score     float64        `bson:"score,omitempty"`
}

func NewMongoVectorIndex(collection *mongo.Collection, indexName string, embedder ai.Embedder) *MongoVectorIndex {
	return &MongoVectorIndex{collection: collection, indexName: indexName, embedder: embedder}
}

func (m *MongoVectorIndex) Name() string { return m.collection.Name() }

// AddDocuments embeds with the index's own embedder and writes each document
// with its own upserting update, in order, stopping at the first rejection.
// Upsert is the bulk path used when this one fails.
func (m *MongoVectorIndex) AddDocuments(ctx context.Context, docs []IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}
	if m.embedder == nil {
		return fmt.Errorf("index %s: no embedder configured", m.collection.Name())
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedding count mismatch: sent %d, got %d", len(docs), len(vectors))
	}
	for i, d := range docs {
		update := bson.M{"$set": bson.M{
			"text":      d.Content,
			"embedding": vectors[i],
			"metadata":  d.Metadata,
		}}
		_, err := m.collection.UpdateOne(ctx, bson.M{"_id": d.ID}, update, options.Update().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("add %s to %s: %w", d.ID, m.collection.Name(), err)
		}
	}
	return nil
}

func (m *MongoVectorIndex) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(records))
	for _, r := range records {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetReplacement(mongoVectorDoc{ID: r.ID, Text: r.Content, Embedding: r.Vector, Metadata: r.Metadata}).
			SetUpsert(true))
	}
	_, err := m.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk upsert into %s: %w", m.collection.Name(), err)
	}
	return nil
}

// Search runs $vectorSearch and converts Atlas similarity (higher is better)
// into a distance of 1 - similarity. Without a vector it lists matching
// chunks in chunk order.
func (m *MongoVectorIndex) Search(ctx context.Context, q VectorQuery) ([]IndexMatch, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	filter := bson.M{}
	for k, v := range q.Filters {
		filter["metadata."+k] = v
	}

	var (
		cursor *mongo.Cursor
		err    error
	)
	if q.Vector == nil {
		cursor, err = m.collection.Find(ctx, filter, options.Find().
			SetProjection(bson.M{"embedding": 0}).
			SetSort(bson.D{{Key: "metadata.chunk_index", Value: 1}}).
			SetLimit(int64(q.Limit)))
	} else {
		stage := bson.M{
			"index":         m.indexName,
			"path":          "embedding",
			"queryVector":   q.Vector,
			"numCandidates": max(q.Limit*10, 100),
			"limit":         q.Limit,
		}
		if len(filter) > 0 {
			stage["filter"] = filter
		}
		pipeline := mongo.Pipeline{
			{{Key: "$vectorSearch", Value: stage}},
			{{Key: "$project", Value: bson.M{
				"text":     1,
				"metadata": 1,
				"score":    bson.M{"$meta": "vectorSearchScore"},
			}}},
		}
		cursor, err = m.collection.Aggregate(ctx, pipeline)
	}
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", m.collection.Name(), err)
	}
	defer cursor.Close(ctx)

	var docs []mongoVectorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s results: %w", m.collection.Name(), err)
	}

	matches := make([]IndexMatch, 0, len(docs))
	for _, d := range docs {
		score := 0.0
		if q.Vector != nil {
			score = 1 - d.Score
		}
		matches = append(matches, IndexMatch{ID: d.ID, Content: d.Text, Metadata: d.Metadata, Score: score})
	}
	return matches, nil
}
