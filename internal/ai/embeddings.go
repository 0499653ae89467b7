package ai

import (
	"context"
	"fmt"

	"eduagent-knowledge/internal/config"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/api/option"
)

// Embedder turns texts into vectors, one per input, order preserved
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// googleBatchLimit is the per-request cap of BatchEmbedContents
const googleBatchLimit = 100

// GoogleEmbedder calls the Generative AI embedding model (text-embedding-004 by default)
type GoogleEmbedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

func NewGoogleEmbedder(ctx context.Context, apiKey, model string) (*GoogleEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleEmbedder{client: client, model: client.EmbeddingModel(model)}, nil
}

func (g *GoogleEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += googleBatchLimit {
		end := min(start+googleBatchLimit, len(texts))
		batch := g.model.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}
		resp, err := g.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", end-start, len(resp.Embeddings))
		}
		for _, e := range resp.Embeddings {
			vectors = append(vectors, e.Values)
		}
	}
	return vectors, nil
}

func (g *GoogleEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

func (g *GoogleEmbedder) Close() error {
	return g.client.Close()
}

// NewOpenAIEmbedder builds a langchaingo embedder over the OpenAI API
func NewOpenAIEmbedder(apiKey, model string) (Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY for embeddings")
	}
	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(64))
	if err != nil {
		return nil, fmt.Errorf("failed to construct openai embedder: %w", err)
	}
	return embedder, nil
}

// NewEmbedder returns the configured provider wrapped in an LRU cache.
// The closer is never nil.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, func() error, error) {
	var (
		base   Embedder
		closer = func() error { return nil }
	)
	switch cfg.EmbeddingsProvider {
	case "google", "":
		g, err := NewGoogleEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
		if err != nil {
			return nil, nil, err
		}
		base, closer = g, g.Close

	case "openai":
		o, err := NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingsModel)
		if err != nil {
			return nil, nil, err
		}
		base = o

	default:
		return nil, nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}

	if cfg.EmbeddingCacheSize <= 0 {
		return base, closer, nil
	}
	cached, err := NewCachedEmbedder(base, cfg.EmbeddingCacheSize)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return cached, closer, nil
}

// NewIndexEmbedder wraps inner in langchaingo's document embedder, which
// flattens newlines and sends texts to inner in batches of batchSize. Index
// backends own one of these for their write path.
func NewIndexEmbedder(inner Embedder, batchSize int) (Embedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("index embedder needs a base embedder")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("index embedder batch size must be positive, got %d", batchSize)
	}
	embedder, err := embeddings.NewEmbedder(
		embeddings.EmbedderClientFunc(inner.EmbedDocuments),
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to construct index embedder: %w", err)
	}
	return embedder, nil
}
