package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the ingestion and retrieval instruments
type Metrics struct {
	IngestDuration      metric.Float64Histogram
	ChunksStored        metric.Int64Counter
	StoreFallbacks      metric.Int64Counter
	QuestionGenerations metric.Int64Counter
	SearchFailures      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
}

// InitMetrics creates instruments on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("eduagent-knowledge")

	ingestDuration, err := meter.Float64Histogram(
		"ingest.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksStored, err := meter.Int64Counter(
		"vectorstore.chunks.stored",
		metric.WithDescription("Chunks written to a vector index"),
	)
	if err != nil {
		return nil, err
	}

	storeFallbacks, err := meter.Int64Counter(
		"vectorstore.fallbacks",
		metric.WithDescription("Store calls that switched to the direct-embedding path"),
	)
	if err != nil {
		return nil, err
	}

	questionGenerations, err := meter.Int64Counter(
		"questions.generations",
		metric.WithDescription("Question generation attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	searchFailures, err := meter.Int64Counter(
		"vectorstore.search.failures",
		metric.WithDescription("Per-index search failures swallowed during merge"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		IngestDuration:      ingestDuration,
		ChunksStored:        chunksStored,
		StoreFallbacks:      storeFallbacks,
		QuestionGenerations: questionGenerations,
		SearchFailures:      searchFailures,
		RequestDuration:     requestDuration,
	}, nil
}

// All Record* helpers accept a nil receiver so components can run without metrics.

// RecordIngest records one ingestion run
func (m *Metrics) RecordIngest(source, status string, duration float64) {
	if m == nil {
		return
	}
	m.IngestDuration.Record(context.Background(), duration, metric.WithAttributes(
		attribute.String("ingest.source", source),
		attribute.String("ingest.status", status),
	))
}

// RecordChunksStored records chunks that reached an index
func (m *Metrics) RecordChunksStored(source string, count int, fallback bool) {
	if m == nil || count == 0 {
		return
	}
	m.ChunksStored.Add(context.Background(), int64(count), metric.WithAttributes(
		attribute.String("index", source),
		attribute.Bool("fallback", fallback),
	))
}

// RecordStoreFallback records a switch to the fallback write path
func (m *Metrics) RecordStoreFallback(source string) {
	if m == nil {
		return
	}
	m.StoreFallbacks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("index", source)))
}

// RecordQuestionGeneration records a generation attempt ("skipped", "empty", "ok", "failed")
func (m *Metrics) RecordQuestionGeneration(outcome string) {
	if m == nil {
		return
	}
	m.QuestionGenerations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSearchFailure records a swallowed per-index search error
func (m *Metrics) RecordSearchFailure(source string) {
	if m == nil {
		return
	}
	m.SearchFailures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("index", source)))
}

// RecordRequest records HTTP request duration
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	))
}
