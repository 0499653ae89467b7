package app

import (
	"context"
	"fmt"

	"eduagent-knowledge/internal/ai"
	"eduagent-knowledge/internal/config"
	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/internal/telemetry"
	"eduagent-knowledge/models"
	"eduagent-knowledge/services"

	"go.mongodb.org/mongo-driver/mongo"
)

// Components are the long-lived pipeline pieces shared by the API and worker.
// The embedder, completer and index handles are built once per process.
type Components struct {
	Store         *services.VectorStore
	Processor     *services.DocumentProcessor
	Retrieval     *services.RetrievalService
	Files         *services.FileRepository
	Questions     *services.SuggestedQuestionsRepository
	Transcription *services.TranscriptionClient

	closers []func() error
}

// Build wires the pipeline. Missing provider credentials are not fatal: the
// vector store reports itself unavailable and question generation is skipped.
func Build(ctx context.Context, cfg *config.Config, client *mongo.Client, metrics *telemetry.Metrics) (*Components, error) {
	c := &Components{}
	db := client.Database(cfg.DBName)

	embedder, closeEmbedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		logger.Warn("Embeddings disabled", "provider", cfg.EmbeddingsProvider, "error", err)
		embedder = nil
	} else {
		c.closers = append(c.closers, closeEmbedder)
	}

	indexes, err := buildIndexes(cfg, db, embedder)
	if err != nil {
		return nil, err
	}
	c.Store = services.NewVectorStore(services.VectorStoreConfig{
		HasCredentials: cfg.EmbeddingAPIKey() != "",
		BatchSize:      cfg.StoreBatchSize,
		Dimensions:     cfg.VectorDimensions,
		EmbedTimeout:   cfg.EmbeddingTimeout,
		IndexTimeout:   cfg.IndexTimeout,
	}, embedder, indexes, metrics)

	var questions *services.QuestionGenerator
	completer, closeCompleter, err := ai.NewCompleter(ctx, cfg)
	if err != nil {
		logger.Warn("Question generation disabled", "provider", cfg.LLMProvider, "error", err)
	} else {
		c.closers = append(c.closers, closeCompleter)
		questions, err = services.NewQuestionGenerator(completer, cfg.LLMTimeout, metrics)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("question generator: %w", err)
		}
	}

	chunker, err := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Files = services.NewFileRepository(db)
	c.Questions = services.NewSuggestedQuestionsRepository(db)
	c.Transcription = services.NewTranscriptionClient(cfg.TranscriptionURL, cfg.TranscriptionAPIKey, cfg.TranscriptionModel, cfg.TranscriptionTimeout)
	c.closers = append(c.closers, func() error { c.Transcription.Close(); return nil })

	c.Processor = services.NewDocumentProcessor(services.DocumentProcessorDeps{
		Extractor:            services.NewPDFPageExtractor(),
		Transcriber:          c.Transcription,
		Chunker:              chunker,
		Questions:            questions,
		Store:                c.Store,
		QuestionsRepo:        c.Questions,
		TranscriptionTimeout: cfg.TranscriptionTimeout,
		QuestionsSaveTimeout: cfg.IndexTimeout,
		Metrics:              metrics,
	})
	c.Retrieval = services.NewRetrievalService(c.Store, c.Files, c.Questions)
	return c, nil
}

func buildIndexes(cfg *config.Config, db *mongo.Database, embedder ai.Embedder) (map[models.SourceType]services.VectorIndex, error) {
	names := map[models.SourceType]string{
		models.SourcePDF:   cfg.PDFIndexCollection,
		models.SourceVideo: cfg.VideoIndexCollection,
	}
	// indexes embed their primary writes through langchaingo's batching
	// embedder; the store's fallback path calls the base embedder directly
	var indexEmbedder ai.Embedder
	if embedder != nil {
		var err error
		indexEmbedder, err = ai.NewIndexEmbedder(embedder, max(cfg.StoreBatchSize, 1))
		if err != nil {
			return nil, err
		}
	}
	indexes := make(map[models.SourceType]services.VectorIndex, len(names))
	for st, name := range names {
		switch cfg.VectorBackend {
		case "atlas":
			indexes[st] = services.NewMongoVectorIndex(db.Collection(name), cfg.VectorIndexName, indexEmbedder)
		case "memory":
			indexes[st] = services.NewMemoryVectorIndex(name, indexEmbedder)
		default:
			return nil, fmt.Errorf("unknown VECTOR_BACKEND: %s", cfg.VectorBackend)
		}
	}
	return indexes, nil
}

// Close releases provider clients in reverse order of creation
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Warn("Failed to close component", "error", err)
		}
	}
	c.closers = nil
}
