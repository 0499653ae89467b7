package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"eduagent-knowledge/internal/ai"
	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/internal/telemetry"
	"eduagent-knowledge/models"
)

var (
	ErrStoreUnavailable  = errors.New("vector store unavailable")
	ErrVectorDimMismatch = errors.New("embedding dimension mismatch")
)

const defaultStoreBatchSize = 10

type VectorStoreConfig struct {
	// HasCredentials reports whether the embedding provider key is present
	HasCredentials bool
	BatchSize      int

	// Dimensions is the index's vector length; zero skips the check
	Dimensions   int
	EmbedTimeout time.Duration
	IndexTimeout time.Duration
}

// VectorStore owns the per-source-type indexes. Writes go through a batched
// high-level path with a direct-embedding fallback; searches fan out over the
// selected indexes and merge by ascending distance.
//
// Availability is decided once at construction. An unavailable store turns
// every Store into a warning and every Search into an empty result.
type VectorStore struct {
	indexes   map[models.SourceType]VectorIndex
	embedder  ai.Embedder
	batchSize int
	dims      int
	embedTO   time.Duration
	indexTO   time.Duration
	metrics   *telemetry.Metrics

	available   bool
	unavailable string
}

func NewVectorStore(cfg VectorStoreConfig, embedder ai.Embedder, indexes map[models.SourceType]VectorIndex, metrics *telemetry.Metrics) *VectorStore {
	s := &VectorStore{
		indexes:   indexes,
		embedder:  embedder,
		batchSize: cfg.BatchSize,
		dims:      cfg.Dimensions,
		embedTO:   cfg.EmbedTimeout,
		indexTO:   cfg.IndexTimeout,
		metrics:   metrics,
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultStoreBatchSize
	}

	switch {
	case !cfg.HasCredentials:
		s.unavailable = "embedding credentials are not configured"
	case embedder == nil:
		s.unavailable = "no embedding client"
	default:
		for _, st := range models.SourceTypes {
			if indexes[st] == nil {
				s.unavailable = fmt.Sprintf("no index for %s documents", st)
				break
			}
		}
	}
	s.available = s.unavailable == ""
	if !s.available {
		logger.Warn("Vector store unavailable", "reason", s.unavailable)
	}
	return s
}

// Available reports the cached availability decision
func (s *VectorStore) Available() bool { return s.available }

// Ready returns nil when the store is available, or ErrStoreUnavailable
// wrapped with the reason.
func (s *VectorStore) Ready() error {
	if s.available {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrStoreUnavailable, s.unavailable)
}

// Store writes chunks of one source type. It reports success when either
// write path completes, warning for nothing-to-store or an unavailable store,
// and error only when both paths fail.
func (s *VectorStore) Store(ctx context.Context, chunks []models.Chunk, sourceType models.SourceType) models.StoreResult {
	if !s.available {
		return models.StoreResult{Status: models.StatusWarning, Message: "Vector store unavailable: " + s.unavailable}
	}
	if len(chunks) == 0 {
		return models.StoreResult{Status: models.StatusWarning, Message: "No documents to store"}
	}
	index, ok := s.indexes[sourceType]
	if !ok {
		return models.StoreResult{Status: models.StatusError, Message: fmt.Sprintf("Unknown document type: %s", sourceType)}
	}

	docs := make([]IndexDocument, len(chunks))
	for i, c := range chunks {
		docs[i] = IndexDocument{ID: c.ID(), Content: c.Content, Metadata: c.Metadata()}
	}

	primaryErr := s.addBatches(ctx, index, docs)
	if primaryErr == nil {
		s.metrics.RecordChunksStored(string(sourceType), len(chunks), false)
		return models.StoreResult{
			Status:       models.StatusSuccess,
			ChunksStored: len(chunks),
			Message:      fmt.Sprintf("Stored %d chunks in %s index", len(chunks), index.Name()),
		}
	}

	logger.Warn("Primary vector write failed, using direct embedding fallback",
		"index", index.Name(), "error", primaryErr)
	s.metrics.RecordStoreFallback(string(sourceType))

	if err := s.upsertBatches(ctx, index, docs); err != nil {
		logger.Error("Vector store fallback failed", "index", index.Name(), "error", err)
		return models.StoreResult{
			Status:  models.StatusError,
			Message: fmt.Sprintf("Error storing documents: primary: %v; fallback: %v", primaryErr, err),
		}
	}

	s.metrics.RecordChunksStored(string(sourceType), len(chunks), true)
	return models.StoreResult{
		Status:       models.StatusSuccess,
		ChunksStored: len(chunks),
		Message:      fmt.Sprintf("Stored %d chunks in %s index via fallback", len(chunks), index.Name()),
		UsedFallback: true,
	}
}

// addBatches runs the high-level path sequentially and stops at the first failure
func (s *VectorStore) addBatches(ctx context.Context, index VectorIndex, docs []IndexDocument) error {
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		err := s.withIndexTimeout(ctx, func(ctx context.Context) error {
			return index.AddDocuments(ctx, docs[start:end])
		})
		if err != nil {
			return fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		logger.Debug("Stored vector batch", "index", index.Name(), "from", start, "to", end)
	}
	return nil
}

// upsertBatches embeds all documents directly and upserts raw records.
// Every batch is rewritten; ids make the overlap with the primary path idempotent.
func (s *VectorStore) upsertBatches(ctx context.Context, index VectorIndex, docs []IndexDocument) error {
	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Content
		}
		var vectors [][]float32
		err := s.withTimeout(ctx, s.embedTO, func(ctx context.Context) error {
			var err error
			vectors, err = s.embedder.EmbedDocuments(ctx, texts)
			return err
		})
		if err != nil {
			return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embed batch %d-%d: got %d vectors", start, end, len(vectors))
		}
		if s.dims > 0 {
			for i, v := range vectors {
				if len(v) != s.dims {
					return fmt.Errorf("embed batch %d-%d: %w: chunk %s has %d, index expects %d",
						start, end, ErrVectorDimMismatch, batch[i].ID, len(v), s.dims)
				}
			}
		}

		records := make([]VectorRecord, len(batch))
		for i, d := range batch {
			records[i] = VectorRecord{ID: d.ID, Vector: vectors[i], Content: d.Content, Metadata: d.Metadata}
		}
		err = s.withIndexTimeout(ctx, func(ctx context.Context) error {
			return index.Upsert(ctx, records)
		})
		if err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// Search returns at most limit matches across the selected indexes, ordered
// by ascending distance. An empty query lists chunks matching filters.
// Failures never surface: an index that errors contributes nothing.
//
// The limit applies after merging, so a list-all call with more matching
// chunks than limit returns only the first limit of them.
func (s *VectorStore) Search(ctx context.Context, query string, limit int, filters map[string]string, sourceType *models.SourceType) []models.SearchResult {
	results := make([]models.SearchResult, 0)
	if !s.available || limit <= 0 {
		return results
	}

	var targets []models.SourceType
	if sourceType != nil {
		if _, ok := s.indexes[*sourceType]; !ok {
			return results
		}
		targets = []models.SourceType{*sourceType}
	} else {
		targets = models.SourceTypes
	}

	var vector []float32
	if strings.TrimSpace(query) != "" {
		err := s.withTimeout(ctx, s.embedTO, func(ctx context.Context) error {
			var err error
			vector, err = s.embedder.EmbedQuery(ctx, query)
			return err
		})
		if err != nil {
			logger.Warn("Query embedding failed", "error", err)
			return results
		}
	}

	perIndex := make([][]models.SearchResult, 0, len(targets))
	for _, st := range targets {
		index := s.indexes[st]
		var matches []IndexMatch
		err := s.withIndexTimeout(ctx, func(ctx context.Context) error {
			var err error
			matches, err = index.Search(ctx, VectorQuery{Vector: vector, Limit: limit, Filters: filters})
			return err
		})
		if err != nil {
			logger.Warn("Index search failed", "index", index.Name(), "error", err)
			s.metrics.RecordSearchFailure(string(st))
			continue
		}
		converted := make([]models.SearchResult, len(matches))
		for i, m := range matches {
			converted[i] = models.SearchResult{Content: m.Content, Metadata: m.Metadata, Score: m.Score}
		}
		perIndex = append(perIndex, converted)
	}

	return mergeByScore(perIndex, limit)
}

// mergeByScore concatenates per-index results, sorts ascending by score
// (stable, so ties keep index order) and truncates to limit.
func mergeByScore(perIndex [][]models.SearchResult, limit int) []models.SearchResult {
	merged := make([]models.SearchResult, 0)
	for _, results := range perIndex {
		merged = append(merged, results...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score < merged[j].Score })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (s *VectorStore) withIndexTimeout(ctx context.Context, fn func(context.Context) error) error {
	return s.withTimeout(ctx, s.indexTO, fn)
}

func (s *VectorStore) withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}
