// Package tracing wires OpenTelemetry HTTP instrumentation with a
// Jaeger exporter.
package tracing

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config holds tracer setup parameters
type Config struct {
	ServiceName    string
	JaegerEndpoint string
}

// Init installs a global tracer provider exporting to Jaeger. The
// returned func flushes and shuts the provider down.
func Init(cfg Config) (func(context.Context) error, error) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create jaeger exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// WrapHandler instruments an HTTP handler with a span per request
func WrapHandler(h http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(h, operation)
}

// WrapHandlerFunc instruments an HTTP handler func
func WrapHandlerFunc(h http.HandlerFunc, operation string) http.Handler {
	return WrapHandler(h, operation)
}
