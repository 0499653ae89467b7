package routes

import (
	"net/http"
	"time"

	"eduagent-knowledge/internal/telemetry"
	"eduagent-knowledge/middleware"

	"github.com/gin-gonic/gin"
)

const maxRequestBody = 1 << 20

type RouterDeps struct {
	ServiceName string
	CORSOrigins []string
	Retrieval   Retrieval
	Ingest      IngestEnqueuer
	SearchLimit gin.HandlerFunc // optional
	Metrics     *telemetry.Metrics
}

// NewRouter assembles the API. Every /api route is scoped to the caller's organization.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	if deps.ServiceName != "" {
		router.Use(middleware.TracingMiddleware(deps.ServiceName), middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(deps.Metrics))
	if len(deps.CORSOrigins) > 0 {
		router.Use(middleware.CORSMiddlewareWithOrigins(deps.CORSOrigins))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	api := router.Group("/api", middleware.RequireOrganization(), middleware.RequestSizeLimit(maxRequestBody))
	SetupSearchRoutes(api, deps.Retrieval, deps.SearchLimit)
	SetupQuestionRoutes(api, deps.Retrieval)
	if deps.Ingest != nil {
		SetupIngestRoutes(api, deps.Ingest)
	}
	return router
}
