package routes

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/middleware"
	"eduagent-knowledge/models"
	"eduagent-knowledge/services"
	"eduagent-knowledge/utils"

	"github.com/gin-gonic/gin"
)

// Retrieval is the read API served under /api
type Retrieval interface {
	SearchDocuments(ctx context.Context, req models.SearchRequest) (models.SearchResponse, error)
	GetDocumentChunks(ctx context.Context, documentID, organizationID string) (models.DocumentChunksResponse, error)
	QuestionsForDocument(ctx context.Context, documentID, organizationID string) (models.SuggestedQuestionsResponse, error)
	QuestionsForFile(ctx context.Context, fileID, organizationID string) (models.SuggestedQuestionsResponse, error)
}

func SetupSearchRoutes(api *gin.RouterGroup, retrieval Retrieval, limiter gin.HandlerFunc) {
	search := api.Group("/search")
	if limiter != nil {
		search.Use(limiter)
	}

	search.GET("/documents", func(c *gin.Context) {
		query := c.Query("query")
		if query == "" {
			utils.RespondWithBadRequest(c, "query is required", nil)
			return
		}
		limit := services.DefaultSearchLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				utils.RespondWithBadRequest(c, "limit must be an integer", gin.H{"limit": raw})
				return
			}
			limit = n
		}

		resp, err := retrieval.SearchDocuments(c.Request.Context(), models.SearchRequest{
			Query:          query,
			Limit:          limit,
			FileType:       c.Query("file_type"),
			DocumentID:     c.Query("document_id"),
			OrganizationID: middleware.GetOrganizationID(c),
		})
		if errors.Is(err, services.ErrInvalidLimit) {
			utils.RespondWithBadRequest(c, err.Error(), gin.H{"limit": limit})
			return
		}
		if err != nil {
			logger.Error("Search failed", "request_id", middleware.GetRequestID(c), "error", err)
			utils.RespondWithInternalError(c, "Error searching documents", nil)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	search.GET("/documents/:document_id", func(c *gin.Context) {
		resp, err := retrieval.GetDocumentChunks(c.Request.Context(), c.Param("document_id"), middleware.GetOrganizationID(c))
		if errors.Is(err, services.ErrDocumentNotFound) {
			utils.RespondWithNotFound(c, err.Error())
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Error retrieving document chunks", nil)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
}
