package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ServiceName identifies this service in traces and metrics.
const ServiceName = "docchat-platform"

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	IngestDuration      metric.Float64Histogram
	ChunksStored        metric.Int64Counter
	ChunksDropped       metric.Int64Counter
	ChatRequests        metric.Int64Counter
	ChatDuration        metric.Float64Histogram
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(ServiceName)

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
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

	ingestDuration, err := meter.Float64Histogram(
		"ingest.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksStored, err := meter.Int64Counter(
		"ingest.chunks.stored",
		metric.WithDescription("Chunks vectorized and stored"),
	)
	if err != nil {
		return nil, err
	}

	chunksDropped, err := meter.Int64Counter(
		"ingest.chunks.dropped",
		metric.WithDescription("Chunks dropped after a vectorization failure"),
	)
	if err != nil {
		return nil, err
	}

	chatRequests, err := meter.Int64Counter(
		"chat.requests.total",
		metric.WithDescription("Total chat messages answered"),
	)
	if err != nil {
		return nil, err
	}

	chatDuration, err := meter.Float64Histogram(
		"chat.duration",
		metric.WithDescription("Chat turn duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		IngestDuration:      ingestDuration,
		ChunksStored:        chunksStored,
		ChunksDropped:       chunksDropped,
		ChatRequests:        chatRequests,
		ChatDuration:        chatDuration,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)

	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordIngest records one ingestion run and its chunk counts.
func (m *Metrics) RecordIngest(kind, status string, duration float64, stored, dropped int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("ingest.kind", kind),
		attribute.String("ingest.status", status),
	)

	m.IngestDuration.Record(context.Background(), duration, attrs)
	m.ChunksStored.Add(context.Background(), int64(stored), attrs)
	m.ChunksDropped.Add(context.Background(), int64(dropped), attrs)
}

// RecordChat records a chat turn.
func (m *Metrics) RecordChat(withContext bool, duration float64, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Bool("chat.context", withContext),
		attribute.Bool("chat.success", success),
	)

	m.ChatRequests.Add(context.Background(), 1, attrs)
	m.ChatDuration.Record(context.Background(), duration, attrs)
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("state", state),
	))
}
