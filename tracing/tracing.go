// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

// Package tracing wraps OpenTelemetry behind a small span API used by the
// agent and the runner.
package tracing

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "github.com/ryichk/task-finalizer-go"

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) AddEvent(name string, attributes map[string]any) {
	s.span.AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func (s *otelSpan) SetAttribute(key string, value any) {
	s.span.SetAttributes(toAttribute(key, value))
}

func (s *otelSpan) SetAttributes(attributes map[string]any) {
	if len(attributes) == 0 {
		return
	}
	s.span.SetAttributes(toAttributes(attributes)...)
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) Context() trace.SpanContext {
	return s.span.SpanContext()
}

// StartSpan starts a span as a child of the span in ctx, if any, using the
// global tracer provider.
func StartSpan(ctx context.Context, name string, attributes map[string]any) (Span, context.Context) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(toAttributes(attributes)...))
	return &otelSpan{span: span}, ctx
}

// GetActiveSpan gets the active span from the context, or nil when there is none
func GetActiveSpan(ctx context.Context) Span {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return &otelSpan{span: span}
}

// InitTracing installs a global tracer provider for config and returns a
// function that flushes and stops it. When tracing is disabled a noop
// provider is installed.
func InitTracing(ctx context.Context, config *Config) (func(context.Context) error, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", config.Exporter, err)
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = DefaultConfig().ServiceName
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SamplingRate))),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

func newExporter(ctx context.Context, config *Config) (sdktrace.SpanExporter, error) {
	switch config.Exporter {
	case ExporterStdout, "":
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if config.Writer != nil {
			opts = append(opts, stdouttrace.WithWriter(config.Writer))
		}
		return stdouttrace.New(opts...)
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
		if config.Timeout > 0 {
			opts = append(opts, otlptracegrpc.WithTimeout(config.Timeout))
		}
		if config.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", config.Exporter)
	}
}

// ConfigFromEnv builds a Config from TASK_FINALIZER_TRACING_ENABLED,
// TASK_FINALIZER_TRACE_EXPORTER, TASK_FINALIZER_TRACE_ENDPOINT,
// TASK_FINALIZER_TRACE_INSECURE and TASK_FINALIZER_TRACE_SAMPLING_RATE.
func ConfigFromEnv(getenv func(string) string) *Config {
	config := DefaultConfig()

	if enabled, _ := strconv.ParseBool(getenv("TASK_FINALIZER_TRACING_ENABLED")); !enabled {
		return config
	}
	config.Enabled = true

	if exporter := getenv("TASK_FINALIZER_TRACE_EXPORTER"); exporter != "" {
		config.Exporter = strings.ToLower(exporter)
	}
	if endpoint := getenv("TASK_FINALIZER_TRACE_ENDPOINT"); endpoint != "" {
		config.Endpoint = endpoint
	}
	if insecure, err := strconv.ParseBool(getenv("TASK_FINALIZER_TRACE_INSECURE")); err == nil {
		config.Insecure = insecure
	}
	if rate, err := strconv.ParseFloat(getenv("TASK_FINALIZER_TRACE_SAMPLING_RATE"), 64); err == nil && rate >= 0 && rate <= 1 {
		config.SamplingRate = rate
	}

	return config
}

func toAttributes(attributes map[string]any) []attribute.KeyValue {
	if len(attributes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		result = append(result, toAttribute(k, attributes[k]))
	}
	return result
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case float32:
		return attribute.Float64(key, float64(v))
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	case error:
		return attribute.String(key, v.Error())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
