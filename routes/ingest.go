package routes

import (
	"context"
	"net/http"
	"path/filepath"

	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/internal/queue"
	"eduagent-knowledge/middleware"
	"eduagent-knowledge/models"
	"eduagent-knowledge/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IngestEnqueuer interface {
	Enqueue(ctx context.Context, sourceType models.SourceType, payload queue.IngestPayload) (string, error)
}

// IngestRequest points at a file that the upload service already stored
type IngestRequest struct {
	FileType    string `json:"file_type" binding:"required"`
	FilePath    string `json:"file_path" binding:"required"`
	DocumentID  string `json:"document_id"`
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	DisplayName string `json:"display_name"`
}

func SetupIngestRoutes(api *gin.RouterGroup, enqueuer IngestEnqueuer) {
	api.POST("/ingest", func(c *gin.Context) {
		var req IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}
		sourceType, ok := models.ParseSourceType(req.FileType)
		if !ok {
			utils.RespondWithBadRequest(c, "file_type must be pdf or video", gin.H{"file_type": req.FileType})
			return
		}
		if req.DocumentID == "" {
			req.DocumentID = uuid.NewString()
		}
		if req.Filename == "" {
			req.Filename = filepath.Base(req.FilePath)
		}

		taskID, err := enqueuer.Enqueue(c.Request.Context(), sourceType, queue.IngestPayload{
			DocumentID:     req.DocumentID,
			FileID:         req.FileID,
			OrganizationID: middleware.GetOrganizationID(c),
			FilePath:       req.FilePath,
			Filename:       req.Filename,
			DisplayName:    req.DisplayName,
		})
		if err != nil {
			logger.Error("Failed to enqueue ingestion", "document_id", req.DocumentID, "error", err)
			utils.RespondWithInternalError(c, "Failed to queue document for processing", nil)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status":      "queued",
			"task_id":     taskID,
			"document_id": req.DocumentID,
			"file_type":   sourceType,
		})
	})
}
