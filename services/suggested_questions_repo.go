package services

import (
	"context"
	"errors"
	"fmt"

	"eduagent-knowledge/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const SuggestedQuestionsCollection = "suggested_questions"

// SuggestedQuestionsRepository keeps one record per (document, file,
// organization). Re-ingesting a video replaces its segments.
type SuggestedQuestionsRepository struct {
	collection *mongo.Collection
}

func NewSuggestedQuestionsRepository(db *mongo.Database) *SuggestedQuestionsRepository {
	return &SuggestedQuestionsRepository{collection: db.Collection(SuggestedQuestionsCollection)}
}

func (r *SuggestedQuestionsRepository) Save(ctx context.Context, record *models.SuggestedQuestionsRecord) error {
	filter := bson.M{
		"document_id":     record.DocumentID,
		"file_id":         record.FileID,
		"organization_id": record.OrganizationID,
	}
	update := bson.M{
		"$set": bson.M{
			"filename":     record.Filename,
			"display_name": record.DisplayName,
			"segments":     record.Segments,
			"updated_at":   record.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": record.CreatedAt},
	}
	if _, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("save suggested questions: %w", err)
	}
	return nil
}

// FindByDocument returns nil without error when the video has no record
func (r *SuggestedQuestionsRepository) FindByDocument(ctx context.Context, documentID, organizationID string) (*models.SuggestedQuestionsRecord, error) {
	return r.findOne(ctx, bson.M{"document_id": documentID, "organization_id": organizationID})
}

func (r *SuggestedQuestionsRepository) FindByFile(ctx context.Context, fileID, organizationID string) (*models.SuggestedQuestionsRecord, error) {
	return r.findOne(ctx, bson.M{"file_id": fileID, "organization_id": organizationID})
}

func (r *SuggestedQuestionsRepository) findOne(ctx context.Context, filter bson.M) (*models.SuggestedQuestionsRecord, error) {
	var record models.SuggestedQuestionsRecord
	opts := options.FindOne().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	err := r.collection.FindOne(ctx, filter, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find suggested questions: %w", err)
	}
	return &record, nil
}
