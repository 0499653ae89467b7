package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File is the uploaded-file record kept in the metadata store.
// Ingestion only reads it for ownership and writes back the processing outcome.
type File struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OriginalFilename  string             `bson:"original_filename" json:"original_filename"`
	DisplayName       string             `bson:"display_name,omitempty" json:"display_name,omitempty"`
	FileType          SourceType         `bson:"file_type" json:"file_type"`
	ContentType       string             `bson:"content_type,omitempty" json:"content_type,omitempty"`
	OrganizationID    string             `bson:"organization_id" json:"organization_id"`
	FilePath          string             `bson:"file_path" json:"-"`
	StorageFilename   string             `bson:"storage_filename,omitempty" json:"storage_filename,omitempty"`
	FileSize          int64              `bson:"file_size" json:"file_size"`
	DocumentID        string             `bson:"document_id" json:"document_id"`
	ProcessingStatus  string             `bson:"processing_status" json:"processing_status"`
	ProcessingMessage string             `bson:"processing_message,omitempty" json:"processing_message,omitempty"`
	ChunksCreated     int                `bson:"chunks_created" json:"chunks_created"`
	TotalPages        int                `bson:"total_pages,omitempty" json:"total_pages,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// Processing status values for File.ProcessingStatus
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)
