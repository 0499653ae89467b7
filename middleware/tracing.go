package middleware

import (
	"time"

	"eduagent-knowledge/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// EnrichTrace tags the request span with the request and organization ids
func EnrichTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		span.SetAttributes(attribute.String("request.id", GetRequestID(c)))

		c.Next()

		if orgID := GetOrganizationID(c); orgID != "" {
			span.SetAttributes(attribute.String("organization.id", orgID))
		}
		span.SetAttributes(attribute.Int("http.response.status_code", c.Writer.Status()))
	}
}

// MetricsMiddleware records request duration by route template
func MetricsMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := "success"
		if c.Writer.Status() >= 400 {
			status = "error"
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordRequest(c.Request.Method, path, status, time.Since(start).Seconds())
	}
}
