package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SuggestedQuestion is a student-style question anchored to a video time range
type SuggestedQuestion struct {
	Question       string `bson:"question" json:"question"`
	Context        string `bson:"context" json:"context"`
	StartTime      string `bson:"start_time" json:"start_time"` // MM:SS
	EndTime        string `bson:"end_time" json:"end_time"`     // MM:SS
	SegmentContext string `bson:"segment_context,omitempty" json:"segment_context,omitempty"`
}

// TimeSegment groups the questions generated for one chunk
type TimeSegment struct {
	Questions []SuggestedQuestion `bson:"questions" json:"questions"`
}

// SuggestedQuestionsRecord holds every time segment produced for one video
type SuggestedQuestionsRecord struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID     string             `bson:"document_id" json:"document_id"`
	FileID         string             `bson:"file_id" json:"file_id"`
	OrganizationID string             `bson:"organization_id" json:"organization_id"`
	Filename       string             `bson:"filename" json:"filename"`
	DisplayName    string             `bson:"display_name" json:"display_name"`
	Segments       []TimeSegment      `bson:"segments" json:"segments"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// SuggestedQuestionsResponse is the caller-facing view of a record
type SuggestedQuestionsResponse struct {
	DocumentID  string        `json:"document_id"`
	FileID      string        `json:"file_id,omitempty"`
	Filename    string        `json:"filename,omitempty"`
	DisplayName string        `json:"display_name,omitempty"`
	Segments    []TimeSegment `json:"segments"`
}
