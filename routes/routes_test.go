package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduagent-knowledge/internal/queue"
	"eduagent-knowledge/middleware"
	"eduagent-knowledge/models"
	"eduagent-knowledge/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeRetrieval struct {
	lastSearch models.SearchRequest
	lastOrg    string
	searchErr  error
	chunksErr  error
	record     models.SuggestedQuestionsResponse
}

func (f *fakeRetrieval) SearchDocuments(_ context.Context, req models.SearchRequest) (models.SearchResponse, error) {
	f.lastSearch = req
	if f.searchErr != nil {
		return models.SearchResponse{}, f.searchErr
	}
	return models.SearchResponse{Status: models.StatusSuccess, Message: "Found 1 results", Results: []models.EnrichedSearchResult{
		{SearchResult: models.SearchResult{Content: "entropy", Score: 0.12, Metadata: map[string]any{"document_id": "doc-1"}}},
	}}, nil
}

func (f *fakeRetrieval) GetDocumentChunks(_ context.Context, documentID, organizationID string) (models.DocumentChunksResponse, error) {
	f.lastOrg = organizationID
	if f.chunksErr != nil {
		return models.DocumentChunksResponse{}, f.chunksErr
	}
	return models.DocumentChunksResponse{Status: models.StatusSuccess, DocumentInfo: &models.DocumentInfo{DocumentID: documentID}}, nil
}

func (f *fakeRetrieval) QuestionsForDocument(_ context.Context, documentID, organizationID string) (models.SuggestedQuestionsResponse, error) {
	f.lastOrg = organizationID
	resp := f.record
	resp.DocumentID = documentID
	return resp, nil
}

func (f *fakeRetrieval) QuestionsForFile(_ context.Context, fileID, organizationID string) (models.SuggestedQuestionsResponse, error) {
	f.lastOrg = organizationID
	resp := f.record
	resp.FileID = fileID
	return resp, nil
}

type fakeEnqueuer struct {
	source  models.SourceType
	payload queue.IngestPayload
	err     error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, sourceType models.SourceType, payload queue.IngestPayload) (string, error) {
	f.source, f.payload = sourceType, payload
	return "task-7", f.err
}

func do(r http.Handler, method, target, body string, org string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if org != "" {
		req.Header.Set(middleware.OrganizationIDHeader, org)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newTestRouter(retrieval *fakeRetrieval, enqueuer *fakeEnqueuer) *gin.Engine {
	return NewRouter(RouterDeps{Retrieval: retrieval, Ingest: enqueuer})
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(&fakeRetrieval{}, &fakeEnqueuer{}), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresOrganization(t *testing.T) {
	w := do(newTestRouter(&fakeRetrieval{}, &fakeEnqueuer{}), http.MethodGet, "/api/search/documents?query=x", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSearchDocumentsRoute(t *testing.T) {
	retrieval := &fakeRetrieval{}
	r := newTestRouter(retrieval, &fakeEnqueuer{})

	w := do(r, http.MethodGet, "/api/search/documents?query=entropy&limit=3&file_type=pdf&document_id=doc-1", "", "org-1")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, models.SearchRequest{Query: "entropy", Limit: 3, FileType: "pdf", DocumentID: "doc-1", OrganizationID: "org-1"},
		retrieval.lastSearch)

	var body models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, 0.12, body.Results[0].Score)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestSearchDocumentsValidation(t *testing.T) {
	retrieval := &fakeRetrieval{}
	r := newTestRouter(retrieval, &fakeEnqueuer{})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/search/documents", "", "org-1").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/search/documents?query=x&limit=many", "", "org-1").Code)

	retrieval.searchErr = services.ErrInvalidLimit
	w := do(r, http.MethodGet, "/api/search/documents?query=x&limit=50", "", "org-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	retrieval.searchErr = errors.New("boom")
	w = do(r, http.MethodGet, "/api/search/documents?query=x", "", "org-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSearchDefaultsLimit(t *testing.T) {
	retrieval := &fakeRetrieval{}
	do(newTestRouter(retrieval, &fakeEnqueuer{}), http.MethodGet, "/api/search/documents?query=x", "", "org-1")
	assert.Equal(t, services.DefaultSearchLimit, retrieval.lastSearch.Limit)
}

func TestDocumentChunksRoute(t *testing.T) {
	retrieval := &fakeRetrieval{}
	r := newTestRouter(retrieval, &fakeEnqueuer{})

	w := do(r, http.MethodGet, "/api/search/documents/doc-1", "", "org-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "org-1", retrieval.lastOrg)
	assert.Contains(t, w.Body.String(), `"document_id":"doc-1"`)

	retrieval.chunksErr = services.ErrDocumentNotFound
	w = do(r, http.MethodGet, "/api/search/documents/doc-1", "", "org-2")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error_code":"not_found"`)
}

func TestQuestionRoutes(t *testing.T) {
	retrieval := &fakeRetrieval{record: models.SuggestedQuestionsResponse{Segments: []models.TimeSegment{}}}
	r := newTestRouter(retrieval, &fakeEnqueuer{})

	w := do(r, http.MethodGet, "/api/questions/video/vid-1", "", "org-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"document_id":"vid-1","segments":[]}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/questions/file/file-1", "", "org-1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"document_id":"","file_id":"file-1","segments":[]}`, w.Body.String())
}

func TestIngestRoute(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	r := newTestRouter(&fakeRetrieval{}, enqueuer)

	w := do(r, http.MethodPost, "/api/ingest",
		`{"file_type":"Video","file_path":"/data/uploads/9c1e.mp4","file_id":"file-1","display_name":"Week 3"}`, "org-1")
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Equal(t, models.SourceVideo, enqueuer.source)
	assert.Equal(t, "org-1", enqueuer.payload.OrganizationID)
	assert.Equal(t, "9c1e.mp4", enqueuer.payload.Filename)
	assert.Len(t, enqueuer.payload.DocumentID, 36)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "task-7", body["task_id"])
	assert.Equal(t, enqueuer.payload.DocumentID, body["document_id"])
}

func TestIngestRouteValidation(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	r := newTestRouter(&fakeRetrieval{}, enqueuer)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/ingest", `{"file_type":"pdf"}`, "org-1").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/ingest", `{"file_type":"docx","file_path":"a.docx"}`, "org-1").Code)

	enqueuer.err = errors.New("redis down")
	w := do(r, http.MethodPost, "/api/ingest", `{"file_type":"pdf","file_path":"a.pdf","document_id":"doc-9"}`, "org-1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
