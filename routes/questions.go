package routes

import (
	"net/http"

	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/middleware"
	"eduagent-knowledge/utils"

	"github.com/gin-gonic/gin"
)

func SetupQuestionRoutes(api *gin.RouterGroup, retrieval Retrieval) {
	questions := api.Group("/questions")

	questions.GET("/video/:document_id", func(c *gin.Context) {
		resp, err := retrieval.QuestionsForDocument(c.Request.Context(), c.Param("document_id"), middleware.GetOrganizationID(c))
		if err != nil {
			logger.Error("Failed to load suggested questions", "document_id", c.Param("document_id"), "error", err)
			utils.RespondWithInternalError(c, "Error retrieving suggested questions", nil)
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	questions.GET("/file/:file_id", func(c *gin.Context) {
		resp, err := retrieval.QuestionsForFile(c.Request.Context(), c.Param("file_id"), middleware.GetOrganizationID(c))
		if err != nil {
			logger.Error("Failed to load suggested questions", "file_id", c.Param("file_id"), "error", err)
			utils.RespondWithInternalError(c, "Error retrieving suggested questions", nil)
			return
		}
		c.JSON(http.StatusOK, resp)
	})
}
