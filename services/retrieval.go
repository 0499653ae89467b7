package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/models"
)

const (
	DefaultSearchLimit = 5
	MaxSearchLimit     = 20
	documentChunkLimit = 100
)

var (
	ErrInvalidLimit     = fmt.Errorf("limit must be between 1 and %d", MaxSearchLimit)
	ErrDocumentNotFound = errors.New("document not found or you don't have access to it")
)

// ChunkSearcher is the read side of the vector store
type ChunkSearcher interface {
	Search(ctx context.Context, query string, limit int, filters map[string]string, sourceType *models.SourceType) []models.SearchResult
}

type FileFinder interface {
	FindByDocumentID(ctx context.Context, documentID, organizationID string) (*models.File, error)
	FindByDocumentIDs(ctx context.Context, documentIDs []string, organizationID string) (map[string]models.File, error)
}

type SuggestedQuestionsFinder interface {
	FindByDocument(ctx context.Context, documentID, organizationID string) (*models.SuggestedQuestionsRecord, error)
	FindByFile(ctx context.Context, fileID, organizationID string) (*models.SuggestedQuestionsRecord, error)
}

// RetrievalService answers organization-scoped queries over stored chunks and
// suggested questions, joining hits with the caller's file records.
type RetrievalService struct {
	searcher  ChunkSearcher
	files     FileFinder
	questions SuggestedQuestionsFinder
}

func NewRetrievalService(searcher ChunkSearcher, files FileFinder, questions SuggestedQuestionsFinder) *RetrievalService {
	return &RetrievalService{searcher: searcher, files: files, questions: questions}
}

// SearchDocuments drops hits whose file the organization does not own.
func (s *RetrievalService) SearchDocuments(ctx context.Context, req models.SearchRequest) (models.SearchResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}
	if limit < 1 || limit > MaxSearchLimit {
		return models.SearchResponse{}, ErrInvalidLimit
	}

	filters := map[string]string{}
	if req.DocumentID != "" {
		filters["document_id"] = req.DocumentID
	}
	var sourceType *models.SourceType
	if st, ok := models.ParseSourceType(req.FileType); ok {
		filters["source"] = string(st)
		sourceType = &st
	}

	results := s.searcher.Search(ctx, req.Query, limit, filters, sourceType)
	if len(results) == 0 {
		return models.SearchResponse{
			Status:  models.StatusSuccess,
			Message: "No results found",
			Results: []models.EnrichedSearchResult{},
		}, nil
	}

	seen := make(map[string]bool)
	var documentIDs []string
	for _, r := range results {
		id, _ := r.Metadata["document_id"].(string)
		if id != "" && !seen[id] {
			seen[id] = true
			documentIDs = append(documentIDs, id)
		}
	}

	files, err := s.files.FindByDocumentIDs(ctx, documentIDs, req.OrganizationID)
	if err != nil {
		logger.Error("Failed to load file metadata for search results", "organization_id", req.OrganizationID, "error", err)
		return models.SearchResponse{
			Status:  models.StatusError,
			Message: "Error searching documents: " + err.Error(),
			Results: []models.EnrichedSearchResult{},
		}, nil
	}

	enriched := make([]models.EnrichedSearchResult, 0, len(results))
	for _, r := range results {
		id, _ := r.Metadata["document_id"].(string)
		file, ok := files[id]
		if !ok {
			continue
		}
		enriched = append(enriched, models.EnrichedSearchResult{
			SearchResult: r,
			FileInfo: models.ResultFileInfo{
				ID:               file.ID.Hex(),
				DisplayName:      file.DisplayName,
				FileType:         file.FileType,
				OriginalFilename: file.OriginalFilename,
				CreatedAt:        createdAt(file),
			},
		})
	}

	return models.SearchResponse{
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Found %d results", len(enriched)),
		Results: enriched,
	}, nil
}

// GetDocumentChunks lists a document's chunks in reading order: page then
// chunk id for PDFs, chunk id for videos.
func (s *RetrievalService) GetDocumentChunks(ctx context.Context, documentID, organizationID string) (models.DocumentChunksResponse, error) {
	file, err := s.files.FindByDocumentID(ctx, documentID, organizationID)
	if err != nil {
		return models.DocumentChunksResponse{
			Status:  models.StatusError,
			Message: "Error retrieving document chunks: " + err.Error(),
			Results: []models.SearchResult{},
		}, nil
	}
	if file == nil {
		return models.DocumentChunksResponse{}, ErrDocumentNotFound
	}

	var sourceType *models.SourceType
	if st, ok := models.ParseSourceType(string(file.FileType)); ok {
		sourceType = &st
	}
	results := s.searcher.Search(ctx, "", documentChunkLimit, map[string]string{"document_id": documentID}, sourceType)
	sortChunks(results)

	return models.DocumentChunksResponse{
		Status:  models.StatusSuccess,
		Message: fmt.Sprintf("Found %d chunks for document %s", len(results), documentID),
		DocumentInfo: &models.DocumentInfo{
			ID:               file.ID.Hex(),
			DocumentID:       documentID,
			DisplayName:      file.DisplayName,
			FileType:         file.FileType,
			OriginalFilename: file.OriginalFilename,
			CreatedAt:        createdAt(*file),
			TotalPages:       file.TotalPages,
			ChunksCreated:    file.ChunksCreated,
		},
		Results: results,
	}, nil
}

// QuestionsForDocument returns empty segments when the video has none
func (s *RetrievalService) QuestionsForDocument(ctx context.Context, documentID, organizationID string) (models.SuggestedQuestionsResponse, error) {
	record, err := s.questions.FindByDocument(ctx, documentID, organizationID)
	if err != nil {
		return models.SuggestedQuestionsResponse{}, err
	}
	return questionsResponse(record, documentID, ""), nil
}

func (s *RetrievalService) QuestionsForFile(ctx context.Context, fileID, organizationID string) (models.SuggestedQuestionsResponse, error) {
	record, err := s.questions.FindByFile(ctx, fileID, organizationID)
	if err != nil {
		return models.SuggestedQuestionsResponse{}, err
	}
	return questionsResponse(record, "", fileID), nil
}

func questionsResponse(record *models.SuggestedQuestionsRecord, documentID, fileID string) models.SuggestedQuestionsResponse {
	if record == nil {
		return models.SuggestedQuestionsResponse{
			DocumentID: documentID,
			FileID:     fileID,
			Segments:   []models.TimeSegment{},
		}
	}
	segments := record.Segments
	if segments == nil {
		segments = []models.TimeSegment{}
	}
	return models.SuggestedQuestionsResponse{
		DocumentID:  record.DocumentID,
		FileID:      record.FileID,
		Filename:    record.Filename,
		DisplayName: record.DisplayName,
		Segments:    segments,
	}
}

func sortChunks(results []models.SearchResult) {
	if len(results) == 0 {
		return
	}
	_, paged := results[0].Metadata["page"]
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Metadata, results[j].Metadata
		if paged {
			if pa, pb := metaInt(a, "page"), metaInt(b, "page"); pa != pb {
				return pa < pb
			}
		}
		return metaInt(a, "chunk_id") < metaInt(b, "chunk_id")
	})
}

// metaInt reads a numeric metadata value however the index decoded it
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return math.MaxInt
}

func createdAt(f models.File) *time.Time {
	if f.CreatedAt.IsZero() {
		return nil
	}
	t := f.CreatedAt
	return &t
}
