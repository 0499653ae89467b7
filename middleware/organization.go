package middleware

import (
	"strings"

	"eduagent-knowledge/utils"

	"github.com/gin-gonic/gin"
)

const OrganizationIDHeader = "X-Organization-ID"

// RequireOrganization scopes the request to the organization named by the
// upstream gateway. Authentication happens before this service.
func RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := strings.TrimSpace(c.GetHeader(OrganizationIDHeader))
		if orgID == "" {
			utils.RespondWithUnauthorized(c, "Organization ID required")
			return
		}
		c.Set("organization_id", orgID)
		c.Next()
	}
}

func GetOrganizationID(c *gin.Context) string {
	return c.GetString("organization_id")
}
