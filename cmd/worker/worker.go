package main

import (
	"context"
	"log"
	"time"

	"eduagent-knowledge/internal/app"
	"eduagent-knowledge/internal/config"
	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/internal/queue"
	"eduagent-knowledge/internal/telemetry"
	"eduagent-knowledge/services"

	"github.com/hibiken/asynq"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg.ServiceName+"-worker", cfg.OTelEndpoint)
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

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "task", task.Type(), "error", err)
			}),
		},
	)

	processor := queue.NewTaskProcessor(
		components.Processor,
		services.NewIngestLock(rdb, queue.LockTTL(cfg.IngestLockTTL)),
		components.Files,
	)
	mux := asynq.NewServeMux()
	processor.Register(mux)

	if err := components.Store.Ready(); err != nil {
		logger.Warn("Chunks will not be indexed", "error", err)
	}

	logger.Info("Starting ingestion worker",
		"concurrency", cfg.WorkerConcurrency,
		"vector_backend", cfg.VectorBackend,
		"vector_store_available", components.Store.Available())

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
