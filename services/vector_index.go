package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"eduagent-knowledge/internal/ai"
)

// IndexDocument is a chunk handed to the high-level path; the index embeds it
type IndexDocument struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// VectorRecord is a pre-embedded entry for the low-level upsert path
type VectorRecord struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]any
}

// VectorQuery selects matches. A nil Vector lists entries matching Filters
// in chunk order with a zero score.
type VectorQuery struct {
	Vector  []float32
	Limit   int
	Filters map[string]string
}

// IndexMatch is one hit; Score is a distance, lower is more similar
type IndexMatch struct {
	ID       string
	Content  string
	Metadata map[string]any
	Score    float64
}

// VectorIndex is one per-source-type partition of the vector store
type VectorIndex interface {
	Name() string
	// AddDocuments embeds and writes documents, overwriting by ID
	AddDocuments(ctx context.Context, docs []IndexDocument) error
	// Upsert writes raw records, overwriting by ID
	Upsert(ctx context.Context, records []VectorRecord) error
	Search(ctx context.Context, q VectorQuery) ([]IndexMatch, error)
}

// MemoryVectorIndex keeps entries in process. It backs VECTOR_BACKEND=memory
// and tests.
type MemoryVectorIndex struct {
	name     string
	embedder ai.Embedder

	mu      sync.RWMutex
	order   []string
	records map[string]VectorRecord
}

func NewMemoryVectorIndex(name string, embedder ai.Embedder) *MemoryVectorIndex {
	return &MemoryVectorIndex{
		name:     name,
		embedder: embedder,
		records:  make(map[string]VectorRecord),
	}
}

func (m *MemoryVectorIndex) Name() string { return m.name }

func (m *MemoryVectorIndex) AddDocuments(ctx context.Context, docs []IndexDocument) error {
	if m.embedder == nil {
		return fmt.Errorf("index %s: no embedder configured", m.name)
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	vectors, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("index %s: embed documents: %w", m.name, err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("index %s: embedding count mismatch: sent %d, got %d", m.name, len(docs), len(vectors))
	}
	records := make([]VectorRecord, len(docs))
	for i, d := range docs {
		records[i] = VectorRecord{ID: d.ID, Vector: vectors[i], Content: d.Content, Metadata: d.Metadata}
	}
	return m.Upsert(ctx, records)
}

func (m *MemoryVectorIndex) Upsert(_ context.Context, records []VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		if _, exists := m.records[r.ID]; !exists {
			m.order = append(m.order, r.ID)
		}
		m.records[r.ID] = r
	}
	return nil
}

func (m *MemoryVectorIndex) Search(_ context.Context, q VectorQuery) ([]IndexMatch, error) {
	if q.Limit <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]IndexMatch, 0)
	for _, id := range m.order {
		r := m.records[id]
		if !matchesFilters(r.Metadata, q.Filters) {
			continue
		}
		score := 0.0
		if q.Vector != nil {
			score = cosineDistance(q.Vector, r.Vector)
		}
		matches = append(matches, IndexMatch{ID: r.ID, Content: r.Content, Metadata: r.Metadata, Score: score})
	}

	if q.Vector != nil {
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score < matches[j].Score })
	} else {
		sort.SliceStable(matches, func(i, j int) bool {
			return chunkIndexOf(matches[i].Metadata) < chunkIndexOf(matches[j].Metadata)
		})
	}
	if len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

// Len reports the number of stored entries
func (m *MemoryVectorIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func matchesFilters(meta map[string]any, filters map[string]string) bool {
	for k, want := range filters {
		got, ok := meta[k]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func chunkIndexOf(meta map[string]any) int {
	return metaInt(meta, "chunk_index")
}

// cosineDistance is 1 - cosine similarity; mismatched or zero vectors are maximally distant
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
