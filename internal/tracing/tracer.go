package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider manages the lifecycle of the OpenTelemetry tracer.
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// PipelineTracer traces one chat message through the pipeline stages.
type PipelineTracer struct {
	tracer trace.Tracer
}

// NewTracerProvider creates an OTLP-exporting tracer provider.
func NewTracerProvider(serviceName, serviceVersion, otlpEndpoint string) (*TracerProvider, error) {
	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.ServiceNamespaceKey.String("callcoach-core"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown flushes and stops the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

func NewPipelineTracer(serviceName string) *PipelineTracer {
	return &PipelineTracer{tracer: otel.Tracer(serviceName)}
}

// StartMessageSpan starts the root span for one chat message.
func (pt *PipelineTracer) StartMessageSpan(ctx context.Context, role string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "chat_message",
		trace.WithAttributes(
			attribute.String("caller.role", role),
			attribute.String("component", "chat-pipeline"),
		),
	)
}

// StartClassifySpan traces intent classification.
func (pt *PipelineTracer) StartClassifySpan(ctx context.Context) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "classify_intent",
		trace.WithAttributes(attribute.String("component", "intent-classifier")),
	)
}

// StartHandlerSpan traces one intent handler execution.
func (pt *PipelineTracer) StartHandlerSpan(ctx context.Context, intent string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "handle_intent",
		trace.WithAttributes(
			attribute.String("intent", intent),
			attribute.String("component", "intent-handler"),
		),
	)
}

// StartLLMSpan traces an LLM provider call.
func (pt *PipelineTracer) StartLLMSpan(ctx context.Context, provider, operation string) (context.Context, trace.Span) {
	return pt.tracer.Start(ctx, "llm_call",
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.operation", operation),
			attribute.String("component", "llm"),
		),
	)
}

// RecordResult records the pipeline outcome on a span.
func (pt *PipelineTracer) RecordResult(span trace.Span, intent string, duration time.Duration, success bool, category string) {
	span.SetAttributes(
		attribute.String("chat.intent", intent),
		attribute.Int64("chat.duration_ms", duration.Milliseconds()),
		attribute.Bool("chat.success", success),
	)
	if !success {
		if category == "" {
			category = "internal"
		}
		span.SetAttributes(attribute.String("chat.error_category", category))
		span.SetStatus(codes.Error, "chat message failed")
	}
}

// RecordError records an error on a span.
func (pt *PipelineTracer) RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
	span.RecordError(err)
}
