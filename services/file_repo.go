package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eduagent-knowledge/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const FilesCollection = "files"

// FileRepository reads file records for ownership checks and writes back the
// ingestion outcome. Uploading and storing files happens elsewhere.
type FileRepository struct {
	collection *mongo.Collection
}

func NewFileRepository(db *mongo.Database) *FileRepository {
	return &FileRepository{collection: db.Collection(FilesCollection)}
}

// FindByDocumentID returns nil when the document is not owned by the organization
func (r *FileRepository) FindByDocumentID(ctx context.Context, documentID, organizationID string) (*models.File, error) {
	var file models.File
	err := r.collection.FindOne(ctx, bson.M{
		"document_id":     documentID,
		"organization_id": organizationID,
	}).Decode(&file)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find file by document: %w", err)
	}
	return &file, nil
}

// FindByDocumentIDs maps document id to file record for the organization
func (r *FileRepository) FindByDocumentIDs(ctx context.Context, documentIDs []string, organizationID string) (map[string]models.File, error) {
	out := make(map[string]models.File, len(documentIDs))
	if len(documentIDs) == 0 {
		return out, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{
		"document_id":     bson.M{"$in": documentIDs},
		"organization_id": organizationID,
	}, options.Find().SetLimit(100))
	if err != nil {
		return nil, fmt.Errorf("find files: %w", err)
	}
	defer cursor.Close(ctx)

	var files []models.File
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	for _, f := range files {
		out[f.DocumentID] = f
	}
	return out, nil
}

// UpdateProcessingResult records the outcome of an ingestion run
func (r *FileRepository) UpdateProcessingResult(ctx context.Context, fileID, status, message string, chunks, pages int) error {
	oid, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file id %q: %w", fileID, err)
	}
	set := bson.M{
		"processing_status":  status,
		"processing_message": message,
		"chunks_created":     chunks,
		"updated_at":         time.Now().UTC(),
	}
	if pages > 0 {
		set["total_pages"] = pages
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update file %s: %w", fileID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("file %s not found", fileID)
	}
	return nil
}
