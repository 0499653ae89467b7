package models

import "time"

// SearchRequest is a caller query scoped to one organization
type SearchRequest struct {
	Query          string
	Limit          int
	FileType       string
	DocumentID     string
	OrganizationID string
}

// ResultFileInfo is the file metadata joined onto a search hit
type ResultFileInfo struct {
	ID               string     `json:"id"`
	DisplayName      string     `json:"display_name"`
	FileType         SourceType `json:"file_type"`
	OriginalFilename string     `json:"original_filename"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

type EnrichedSearchResult struct {
	SearchResult
	FileInfo ResultFileInfo `json:"file_info"`
}

type SearchResponse struct {
	Status  Status                 `json:"status"`
	Message string                 `json:"message"`
	Results []EnrichedSearchResult `json:"results"`
}

// DocumentInfo describes the file behind a chunk listing
type DocumentInfo struct {
	ID               string     `json:"id"`
	DocumentID       string     `json:"document_id"`
	DisplayName      string     `json:"display_name"`
	FileType         SourceType `json:"file_type"`
	OriginalFilename string     `json:"original_filename"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
	TotalPages       int        `json:"total_pages,omitempty"`
	ChunksCreated    int        `json:"chunks_created"`
}

type DocumentChunksResponse struct {
	Status       Status         `json:"status"`
	Message      string         `json:"message"`
	DocumentInfo *DocumentInfo  `json:"document_info,omitempty"`
	Results      []SearchResult `json:"results"`
}
