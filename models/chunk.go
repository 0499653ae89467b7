package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceType identifies which per-type index a chunk belongs to
type SourceType string

const (
	SourcePDF   SourceType = "pdf"
	SourceVideo SourceType = "video"
)

// SourceTypes lists every index partition in search order
var SourceTypes = []SourceType{SourcePDF, SourceVideo}

// ParseSourceType accepts "pdf" or "video" in any case
func ParseSourceType(s string) (SourceType, bool) {
	switch SourceType(strings.ToLower(strings.TrimSpace(s))) {
	case SourcePDF:
		return SourcePDF, true
	case SourceVideo:
		return SourceVideo, true
	}
	return "", false
}

// TimestampRange is a time span in seconds within a video
type TimestampRange struct {
	Start float64 `bson:"start" json:"start"`
	End   float64 `bson:"end" json:"end"`
}

// TimestampMetadata is the display form stored alongside video chunks
type TimestampMetadata struct {
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	TimestampRange string `json:"timestamp_range"`
}

// Formatted renders the range as HH:MM:SS strings
func (r TimestampRange) Formatted() TimestampMetadata {
	start := FormatHMS(r.Start)
	end := FormatHMS(r.End)
	return TimestampMetadata{
		StartTime:      start,
		EndTime:        end,
		TimestampRange: start + " - " + end,
	}
}

// FormatHMS truncates seconds to an HH:MM:SS string
func FormatHMS(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatMS truncates seconds to an MM:SS string; minutes do not wrap at the hour
func FormatMS(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Chunk is one bounded span of source text plus its provenance.
// It is built once during an ingestion run and handed to the vector store.
type Chunk struct {
	Content          string          `json:"content"`
	DocumentID       string          `json:"document_id"`
	Source           SourceType      `json:"source"`
	ChunkIndex       int             `json:"chunk_id"`
	Page             *int            `json:"page,omitempty"`
	TimestampRange   *TimestampRange `json:"timestamp_range,omitempty"`
	Filename         string          `json:"filename"`
	OriginalFilename string          `json:"original_filename"`
	Language         string          `json:"language,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ID is the index entry identifier; re-ingesting with the same numbering overwrites.
func (c Chunk) ID() string {
	return c.DocumentID + "-" + strconv.Itoa(c.ChunkIndex)
}

// Metadata flattens the chunk into the metadata map stored with its vector
func (c Chunk) Metadata() map[string]any {
	meta := map[string]any{
		"document_id":       c.DocumentID,
		"filename":          c.Filename,
		"original_filename": c.OriginalFilename,
		"chunk_id":          strconv.Itoa(c.ChunkIndex),
		"chunk_index":       c.ChunkIndex,
		"source":            string(c.Source),
		"created_at":        c.CreatedAt.UTC().Format(time.RFC3339),
	}
	if c.Page != nil {
		meta["page"] = *c.Page
	}
	if c.Language != "" {
		meta["language"] = c.Language
	}
	if c.TimestampRange != nil {
		if raw, err := json.Marshal(c.TimestampRange.Formatted()); err == nil {
			meta["timestamp_metadata"] = string(raw)
		}
		meta["start_seconds"] = c.TimestampRange.Start
		meta["end_seconds"] = c.TimestampRange.End
	}
	return meta
}

// TimestampSegment maps a character span of the full transcript to a time range
type TimestampSegment struct {
	StartPos  int
	EndPos    int
	StartTime float64
	EndTime   float64
}
