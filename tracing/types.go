// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package tracing

import (
	"io"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Span represents a span in a trace
type Span interface {
	// End ends the span
	End()

	// AddEvent adds an event to the span
	AddEvent(name string, attributes map[string]any)

	// SetAttribute sets an attribute on the span
	SetAttribute(key string, value any)

	// SetAttributes sets multiple attributes on the span
	SetAttributes(attributes map[string]any)

	// RecordError records err on the span and marks it failed
	RecordError(err error)

	// Context returns the span context
	Context() trace.SpanContext
}

const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config contains configuration for tracing
type Config struct {
	// Enabled indicates whether tracing is enabled
	Enabled bool

	// Exporter is "stdout" or "otlp"
	Exporter string

	// Endpoint is the OTLP gRPC collector address (host:port)
	Endpoint string

	// Insecure disables TLS for the OTLP exporter
	Insecure bool

	// Timeout bounds each OTLP export
	Timeout time.Duration

	// SamplingRate is the fraction of traces kept (0.0-1.0)
	SamplingRate float64

	// ServiceName is reported as service.name
	ServiceName string

	// Writer receives stdout exporter output; nil means os.Stdout
	Writer io.Writer
}

// DefaultConfig returns the default tracing configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:      false,
		Exporter:     ExporterStdout,
		Endpoint:     "localhost:4317",
		Timeout:      10 * time.Second,
		SamplingRate: 1.0,
		ServiceName:  "task-finalizer",
	}
}
