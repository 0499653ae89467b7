package models

// Status is the outcome carried by every public pipeline result
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// StoreResult reports how many chunks reached the vector index
type StoreResult struct {
	Status       Status `json:"status"`
	ChunksStored int    `json:"chunks_stored"`
	Message      string `json:"message"`
	UsedFallback bool   `json:"used_fallback,omitempty"`
}

// SearchResult is one ranked match. Score is a distance: lower is more similar.
type SearchResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// PDFIngestResult is returned by the PDF ingestion path
type PDFIngestResult struct {
	Status        Status      `json:"status"`
	Message       string      `json:"message"`
	DocumentID    string      `json:"document_id"`
	Filename      string      `json:"filename"`
	ChunksCreated int         `json:"chunks_created"`
	TotalPages    int         `json:"total_pages"`
	Chunks        []Chunk     `json:"chunks,omitempty"`
	Store         StoreResult `json:"store"`
}

// VideoIngestResult is returned by the video ingestion path
type VideoIngestResult struct {
	Status            Status      `json:"status"`
	Message           string      `json:"message"`
	DocumentID        string      `json:"document_id"`
	Filename          string      `json:"filename"`
	ChunksCreated     int         `json:"chunks_created"`
	QuestionsSegments int         `json:"questions_segments"`
	Language          string      `json:"language,omitempty"`
	Chunks            []Chunk     `json:"chunks,omitempty"`
	Store             StoreResult `json:"store"`
}
