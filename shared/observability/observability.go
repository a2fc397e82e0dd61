// Package observability wires OpenTelemetry tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "storefront-support/backend"

func newResource(serviceName, version string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
}

// SetupTracing installs a global tracer provider that writes spans to w.
// The returned function flushes and stops it.
func SetupTracing(serviceName, version string, w io.Writer) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("stdouttrace exporter: %w", err)
	}
	res, err := newResource(serviceName, version)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// Tracer returns the tracer used across the service. Without SetupTracing it
// is a no-op tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Metrics holds the service instruments. A nil *Metrics records nothing.
type Metrics struct {
	registry *promclient.Registry
	provider *sdkmetric.MeterProvider

	replies       metric.Int64Counter
	llmCalls      metric.Int64Counter
	llmLatency    metric.Float64Histogram
	conversations metric.Int64Counter
	purged        metric.Int64Counter
}

// NewMetrics creates the instruments on a private Prometheus registry
func NewMetrics(serviceName, version string) (*Metrics, error) {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exp, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	res, err := newResource(serviceName, version)
	if err != nil {
		return nil, fmt.Errorf("metric resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exp),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(instrumentationName)

	m := &Metrics{registry: registry, provider: provider}
	if m.replies, err = meter.Int64Counter("chat_replies",
		metric.WithDescription("Replies returned to users, by outcome")); err != nil {
		return nil, err
	}
	if m.llmCalls, err = meter.Int64Counter("llm_calls",
		metric.WithDescription("Language model calls, by provider and outcome")); err != nil {
		return nil, err
	}
	if m.llmLatency, err = meter.Float64Histogram("llm_call_duration",
		metric.WithUnit("s"),
		metric.WithDescription("Language model call latency")); err != nil {
		return nil, err
	}
	if m.conversations, err = meter.Int64Counter("conversations_created",
		metric.WithDescription("Conversations opened")); err != nil {
		return nil, err
	}
	if m.purged, err = meter.Int64Counter("conversations_purged",
		metric.WithDescription("Conversations removed by retention")); err != nil {
		return nil, err
	}
	return m, nil
}

// Handler serves the Prometheus exposition for this registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Shutdown stops the meter provider
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

// RecordReply counts a reply; outcome is "ok", "truncated", a failure kind or "error"
func (m *Metrics) RecordReply(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.replies.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordLLMCall counts a model call and its latency
func (m *Metrics) RecordLLMCall(ctx context.Context, provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	)
	m.llmCalls.Add(ctx, 1, attrs)
	m.llmLatency.Record(ctx, d.Seconds(), attrs)
}

// RecordConversationCreated counts a new conversation
func (m *Metrics) RecordConversationCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.conversations.Add(ctx, 1)
}

// RecordPurged counts conversations removed by retention
func (m *Metrics) RecordPurged(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.purged.Add(ctx, n)
}
