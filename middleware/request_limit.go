package middleware

import (
	"net/http"

	"eduagent-knowledge/utils"

	"github.com/gin-gonic/gin"
)

// RequestSizeLimit rejects bodies larger than maxSize and caps the reader
// for requests that do not declare a length
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				"request_too_large",
				"Request body exceeds maximum size",
				gin.H{"max_size": maxSize, "received": c.Request.ContentLength})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
