package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eduagent-knowledge/internal/app"
	"eduagent-knowledge/internal/config"
	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/internal/queue"
	"eduagent-knowledge/internal/telemetry"
	"eduagent-knowledge/middleware"
	"eduagent-knowledge/routes"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	components, err := app.Build(context.Background(), cfg, mongoClient, metrics)
	if err != nil {
		log.Fatal("Failed to build pipeline:", err)
	}
	defer components.Close()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	redisOpt, err := cfg.AsynqRedisOpt()
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}
	queueClient := asynq.NewClient(redisOpt)
	defer queueClient.Close()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.RouterDeps{
		ServiceName: cfg.ServiceName,
		CORSOrigins: cfg.CORSOrigins,
		Retrieval:   components.Retrieval,
		Ingest:      queue.NewIngestQueue(queueClient),
		SearchLimit: middleware.RateLimitMiddleware(rdb, cfg.SearchRateLimit, cfg.SearchRateWindow),
		Metrics:     metrics,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	if err := components.Store.Ready(); err != nil {
		logger.Warn("Serving without vector search", "error", err)
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "vector_store_available", components.Store.Available())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
