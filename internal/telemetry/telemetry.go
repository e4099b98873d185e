// Package telemetry constructs the OpenTelemetry tracing substrate the SDK
// runs on: exporter selection from an adapter endpoint, resource attributes,
// and the batching tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/ashita-ai/miru/adapter"
)

// Shutdown flushes and stops the tracer provider. Must be called during
// graceful shutdown or buffered spans are lost.
type Shutdown func(ctx context.Context) error

// Identity is the service metadata attached to every exported span.
type Identity struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// Init builds a tracer provider exporting to the adapter's endpoint.
// When strict is true, spans carrying the contract-violation marker are
// dropped before they reach the exporter. A partially-valid span is never
// sent to a real destination in strict mode.
func Init(ctx context.Context, ep adapter.Endpoint, id Identity, resourceAttrs map[string]string, strict bool, violationKey string) (*sdktrace.TracerProvider, Shutdown, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceNameKey.String(id.ServiceName),
	}
	if id.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(id.ServiceVersion))
	}
	if id.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", id.Environment))
	}
	for k, v := range resourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}

	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	exp, err := newExporter(ctx, ep)
	if err != nil {
		return nil, nil, err
	}
	if strict {
		exp = &filterExporter{next: exp, dropKey: attribute.Key(violationKey)}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp,
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)
	return tp, tp.Shutdown, nil
}

func newExporter(ctx context.Context, ep adapter.Endpoint) (sdktrace.SpanExporter, error) {
	switch ep.Protocol {
	case adapter.ProtocolGRPC:
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(ep.URL),
			otlptracegrpc.WithHeaders(ep.Headers),
		}
		if ep.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: create grpc exporter: %w", err)
		}
		return exp, nil

	case adapter.ProtocolHTTP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(ep.URL),
			otlptracehttp.WithHeaders(ep.Headers),
		}
		if ep.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("telemetry: create http exporter: %w", err)
		}
		return exp, nil

	case adapter.ProtocolStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: create stdout exporter: %w", err)
		}
		return exp, nil

	default:
		return nil, fmt.Errorf("telemetry: unsupported protocol %q", ep.Protocol)
	}
}

// filterExporter drops spans flagged with the contract-violation marker.
// Only installed in strict mode; lenient mode exports marked spans untouched.
type filterExporter struct {
	next    sdktrace.SpanExporter
	dropKey attribute.Key
}

func (f *filterExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	kept := make([]sdktrace.ReadOnlySpan, 0, len(spans))
	for _, s := range spans {
		if !hasAttr(s, f.dropKey) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return f.next.ExportSpans(ctx, kept)
}

func (f *filterExporter) Shutdown(ctx context.Context) error {
	return f.next.Shutdown(ctx)
}

func hasAttr(s sdktrace.ReadOnlySpan, key attribute.Key) bool {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return true
		}
	}
	return false
}
