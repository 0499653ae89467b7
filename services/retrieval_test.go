package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduagent-knowledge/models"
)

type fakeSearcher struct {
	results    []models.SearchResult
	query      string
	limit      int
	filters    map[string]string
	sourceType *models.SourceType
}

func (f *fakeSearcher) Search(_ context.Context, query string, limit int, filters map[string]string, sourceType *models.SourceType) []models.SearchResult {
	f.query, f.limit, f.filters, f.sourceType = query, limit, filters, sourceType
	out := make([]models.SearchResult, len(f.results))
	copy(out, f.results)
	return out
}

type fakeFiles struct {
	byDocument map[string]models.File
	err        error
}

func (f *fakeFiles) FindByDocumentID(_ context.Context, documentID, organizationID string) (*models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	file, ok := f.byDocument[documentID]
	if !ok || file.OrganizationID != organizationID {
		return nil, nil
	}
	return &file, nil
}

func (f *fakeFiles) FindByDocumentIDs(_ context.Context, documentIDs []string, organizationID string) (map[string]models.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]models.File{}
	for _, id := range documentIDs {
		if file, ok := f.byDocument[id]; ok && file.OrganizationID == organizationID {
			out[id] = file
		}
	}
	return out, nil
}

type fakeQuestions struct {
	record *models.SuggestedQuestionsRecord
	err    error
}

func (f *fakeQuestions) FindByDocument(context.Context, string, string) (*models.SuggestedQuestionsRecord, error) {
	return f.record, f.err
}

func (f *fakeQuestions) FindByFile(context.Context, string, string) (*models.SuggestedQuestionsRecord, error) {
	return f.record, f.err
}

func hit(documentID string, score float64, meta map[string]any) models.SearchResult {
	m := map[string]any{"document_id": documentID}
	for k, v := range meta {
		m[k] = v
	}
	return models.SearchResult{Content: documentID, Metadata: m, Score: score}
}

func testFiles() *fakeFiles {
	return &fakeFiles{byDocument: map[string]models.File{
		"doc-1": {ID: primitive.NewObjectID(), DocumentID: "doc-1", OrganizationID: "org-1", FileType: models.SourcePDF,
			DisplayName: "Thermo notes", OriginalFilename: "thermo.pdf", CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), TotalPages: 4},
		"vid-1": {ID: primitive.NewObjectID(), DocumentID: "vid-1", OrganizationID: "org-1", FileType: models.SourceVideo,
			DisplayName: "Week 3", OriginalFilename: "week3.mp4"},
		"doc-x": {ID: primitive.NewObjectID(), DocumentID: "doc-x", OrganizationID: "org-2", FileType: models.SourcePDF},
	}}
}

func TestSearchDocumentsJoinsOwnedFiles(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		hit("doc-1", 0.1, nil), hit("doc-x", 0.2, nil), hit("vid-1", 0.3, nil),
	}}
	svc := NewRetrievalService(searcher, testFiles(), &fakeQuestions{})

	resp, err := svc.SearchDocuments(context.Background(), models.SearchRequest{Query: "entropy", OrganizationID: "org-1"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, resp.Status)
	assert.Equal(t, "Found 2 results", resp.Message)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Thermo notes", resp.Results[0].FileInfo.DisplayName)
	assert.NotNil(t, resp.Results[0].FileInfo.CreatedAt)
	assert.Nil(t, resp.Results[1].FileInfo.CreatedAt)
	assert.Equal(t, DefaultSearchLimit, searcher.limit)
	assert.Empty(t, searcher.filters)
	assert.Nil(t, searcher.sourceType)
}

func TestSearchDocumentsFilters(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := NewRetrievalService(searcher, testFiles(), &fakeQuestions{})

	resp, err := svc.SearchDocuments(context.Background(), models.SearchRequest{
		Query: "heat", Limit: 20, FileType: "Video", DocumentID: "vid-1", OrganizationID: "org-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "No results found", resp.Message)
	assert.NotNil(t, resp.Results)
	assert.Equal(t, map[string]string{"document_id": "vid-1", "source": "video"}, searcher.filters)
	require.NotNil(t, searcher.sourceType)
	assert.Equal(t, models.SourceVideo, *searcher.sourceType)
}

func TestSearchDocumentsIgnoresUnknownFileType(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := NewRetrievalService(searcher, testFiles(), &fakeQuestions{})

	_, err := svc.SearchDocuments(context.Background(), models.SearchRequest{Query: "q", FileType: "docx", OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Nil(t, searcher.sourceType)
	assert.NotContains(t, searcher.filters, "source")
}

func TestSearchDocumentsRejectsLimit(t *testing.T) {
	svc := NewRetrievalService(&fakeSearcher{}, testFiles(), &fakeQuestions{})
	for _, limit := range []int{-1, 21} {
		_, err := svc.SearchDocuments(context.Background(), models.SearchRequest{Query: "q", Limit: limit})
		assert.ErrorIs(t, err, ErrInvalidLimit)
	}
}

func TestSearchDocumentsFileLookupFailure(t *testing.T) {
	svc := NewRetrievalService(&fakeSearcher{results: []models.SearchResult{hit("doc-1", 0.1, nil)}},
		&fakeFiles{err: errors.New("server selection timeout")}, &fakeQuestions{})

	resp, err := svc.SearchDocuments(context.Background(), models.SearchRequest{Query: "q", OrganizationID: "org-1"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, resp.Status)
	assert.Empty(t, resp.Results)
}

func TestGetDocumentChunksSortsPDFByPageThenChunk(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		hit("doc-1", 0, map[string]any{"page": int32(2), "chunk_id": "3"}),
		hit("doc-1", 0, map[string]any{"page": int32(1), "chunk_id": "1"}),
		hit("doc-1", 0, map[string]any{"page": int32(2), "chunk_id": "2"}),
		hit("doc-1", 0, map[string]any{"page": int32(1), "chunk_id": "0"}),
	}}
	svc := NewRetrievalService(searcher, testFiles(), &fakeQuestions{})

	resp, err := svc.GetDocumentChunks(context.Background(), "doc-1", "org-1")
	require.NoError(t, err)

	require.Len(t, resp.Results, 4)
	for i, r := range resp.Results {
		assert.Equal(t, i, metaInt(r.Metadata, "chunk_id"))
	}
	assert.Equal(t, "", searcher.query)
	assert.Equal(t, 100, searcher.limit)
	assert.Equal(t, models.SourcePDF, *searcher.sourceType)
	require.NotNil(t, resp.DocumentInfo)
	assert.Equal(t, 4, resp.DocumentInfo.TotalPages)
}

func TestGetDocumentChunksSortsVideoByChunk(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		hit("vid-1", 0, map[string]any{"chunk_id": "10"}),
		hit("vid-1", 0, map[string]any{"chunk_id": "2"}),
	}}
	svc := NewRetrievalService(searcher, testFiles(), &fakeQuestions{})

	resp, err := svc.GetDocumentChunks(context.Background(), "vid-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "2", resp.Results[0].Metadata["chunk_id"])
	assert.Equal(t, "10", resp.Results[1].Metadata["chunk_id"])
}

func TestGetDocumentChunksRequiresOwnership(t *testing.T) {
	svc := NewRetrievalService(&fakeSearcher{}, testFiles(), &fakeQuestions{})

	_, err := svc.GetDocumentChunks(context.Background(), "doc-x", "org-1")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestSuggestedQuestionsLookup(t *testing.T) {
	svc := NewRetrievalService(&fakeSearcher{}, testFiles(), &fakeQuestions{})
	resp, err := svc.QuestionsForDocument(context.Background(), "vid-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "vid-1", resp.DocumentID)
	assert.NotNil(t, resp.Segments)
	assert.Empty(t, resp.Segments)

	record := &models.SuggestedQuestionsRecord{
		DocumentID: "vid-1", FileID: "file-1", DisplayName: "Week 3",
		Segments: []models.TimeSegment{{Questions: []models.SuggestedQuestion{{Question: "Why?"}}}},
	}
	svc = NewRetrievalService(&fakeSearcher{}, testFiles(), &fakeQuestions{record: record})
	resp, err = svc.QuestionsForFile(context.Background(), "file-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "vid-1", resp.DocumentID)
	assert.Equal(t, "Week 3", resp.DisplayName)
	assert.Len(t, resp.Segments, 1)

	svc = NewRetrievalService(&fakeSearcher{}, testFiles(), &fakeQuestions{err: errors.New("boom")})
	_, err = svc.QuestionsForDocument(context.Background(), "vid-1", "org-1")
	assert.Error(t, err)
}
