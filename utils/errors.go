package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON envelope for every non-2xx API response
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondWithError aborts the request with the standard envelope
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details any) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
		RequestID: c.GetString("request_id"),
	})
}

func RespondWithBadRequest(c *gin.Context, message string, details any) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

func RespondWithUnauthorized(c *gin.Context, message string) {
	RespondWithError(c, http.StatusUnauthorized, "unauthorized", message, nil)
}

func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

func RespondWithInternalError(c *gin.Context, message string, details any) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}
