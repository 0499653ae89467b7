package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration (queue + ingest locks)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Language model
	LLMProvider  string // "google" (default), "openai"
	GeminiAPIKey string
	GeminiModel  string
	GeminiTier   string
	OpenAIAPIKey string
	OpenAIModel  string

	// Embeddings configuration
	EmbeddingsProvider    string // "google" (default), "openai"
	GoogleEmbeddingsModel string // e.g., "text-embedding-004"
	OpenAIEmbeddingsModel string
	EmbeddingCacheSize    int

	// Vector index
	VectorBackend        string // "atlas" (default), "memory"
	PDFIndexCollection   string
	VideoIndexCollection string
	VectorIndexName      string
	VectorDimensions     int
	StoreBatchSize       int

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Transcription service (OpenAI-compatible /v1/audio/transcriptions)
	TranscriptionURL    string
	TranscriptionAPIKey string
	TranscriptionModel  string

	// Per-call timeouts
	TranscriptionTimeout time.Duration
	EmbeddingTimeout     time.Duration
	IndexTimeout         time.Duration
	LLMTimeout           time.Duration

	// Worker
	WorkerConcurrency int
	IngestLockTTL     time.Duration
	SearchRateLimit   int
	SearchRateWindow  int

	// Telemetry
	OTelEndpoint string
	ServiceName  string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/eduagent"),
		DBName:      getEnv("DB_NAME", "eduagent"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8501"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LLMProvider:  getEnv("LLM_PROVIDER", "google"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:   getEnv("GEMINI_TIER", "free"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "google"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),
		EmbeddingCacheSize:    getEnvInt("EMBEDDING_CACHE_SIZE", 1024),

		VectorBackend:        getEnv("VECTOR_BACKEND", "atlas"),
		PDFIndexCollection:   getEnv("PDF_INDEX_COLLECTION", "pdf_chunks"),
		VideoIndexCollection: getEnv("VIDEO_INDEX_COLLECTION", "video_chunks"),
		VectorIndexName:      getEnv("VECTOR_INDEX_NAME", "chunks_vector"),
		VectorDimensions:     getEnvInt("VECTOR_DIM", defaultVectorDim(getEnv("EMBEDDINGS_PROVIDER", "google"))),
		StoreBatchSize:       getEnvInt("STORE_BATCH_SIZE", 10),

		ChunkSize:    getEnvInt("CHUNK_SIZE", 5000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 500),

		TranscriptionURL:    getEnv("TRANSCRIPTION_URL", "https://api.openai.com"),
		TranscriptionAPIKey: getEnv("TRANSCRIPTION_API_KEY", getEnv("OPENAI_API_KEY", "")),
		TranscriptionModel:  getEnv("TRANSCRIPTION_MODEL", "whisper-1"),

		TranscriptionTimeout: getEnvSeconds("TRANSCRIPTION_TIMEOUT", 1800),
		EmbeddingTimeout:     getEnvSeconds("EMBEDDING_TIMEOUT", 60),
		IndexTimeout:         getEnvSeconds("INDEX_TIMEOUT", 30),
		LLMTimeout:           getEnvSeconds("LLM_TIMEOUT", 60),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		IngestLockTTL:     getEnvSeconds("INGEST_LOCK_TTL", 7200),
		SearchRateLimit:   getEnvInt("SEARCH_RATE_LIMIT", 60),
		SearchRateWindow:  getEnvInt("SEARCH_RATE_WINDOW", 60),

		OTelEndpoint: getEnv("OTEL_ENDPOINT", ""),
		ServiceName:  getEnv("SERVICE_NAME", "eduagent-knowledge"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks structural settings. Missing API keys are not errors here:
// they make the vector store report itself unavailable instead.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.StoreBatchSize <= 0 {
		return fmt.Errorf("STORE_BATCH_SIZE must be positive, got %d", c.StoreBatchSize)
	}
	if c.VectorDimensions < 0 {
		return fmt.Errorf("VECTOR_DIM cannot be negative, got %d", c.VectorDimensions)
	}
	switch c.VectorBackend {
	case "atlas", "memory":
	default:
		return fmt.Errorf("unknown VECTOR_BACKEND: %s", c.VectorBackend)
	}
	return nil
}

// EmbeddingAPIKey returns the credential for the configured embeddings provider
func (c *Config) EmbeddingAPIKey() string {
	if c.EmbeddingsProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// defaultVectorDim matches the default embedding model of each provider
func defaultVectorDim(provider string) int {
	if provider == "openai" {
		return 1536
	}
	return 768
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
