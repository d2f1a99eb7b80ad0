package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kgview/kgview/internal/build"
)

type TracerOption func(d *customTracer)

// WithOTLPEndpoint sets the host:port of the OTLP gRPC collector. Without
// one, spans are only handed to the registered span processors.
func WithOTLPEndpoint(endpoint string) TracerOption {
	return func(d *customTracer) {
		d.endpoint = endpoint
	}
}

func WithServiceName(serviceName string) TracerOption {
	return func(d *customTracer) {
		d.serviceName = serviceName
	}
}

func WithSamplingRatio(samplingRatio float64) TracerOption {
	return func(d *customTracer) {
		d.samplingRatio = samplingRatio
	}
}

// WithAttributes adds resource attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) TracerOption {
	return func(d *customTracer) {
		d.attributes = append(d.attributes, attrs...)
	}
}

// WithTailLatency only exports traces whose root span lasted at least latency.
// Zero exports everything.
func WithTailLatency(latency time.Duration) TracerOption {
	return func(d *customTracer) {
		d.tailLatency = latency
	}
}

type customTracer struct {
	endpoint      string
	serviceName   string
	samplingRatio float64
	attributes    []attribute.KeyValue
	tailLatency   time.Duration
}

// NewTracerProvider builds the process wide tracer provider, installs it
// with the W3C propagators and returns it. The exporter connects lazily, an
// unreachable collector does not fail startup.
func NewTracerProvider(ctx context.Context, opts ...TracerOption) (TracerProvider, error) {
	tracer := &customTracer{
		serviceName: "kgview",
	}

	for _, opt := range opts {
		opt(tracer)
	}

	attrs := append([]attribute.KeyValue{
		semconv.ServiceName(tracer.serviceName),
		semconv.ServiceVersion(build.Version),
	}, tracer.attributes...)

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tracer.samplingRatio))),
		sdktrace.WithResource(res),
	}

	if tracer.endpoint != "" {
		var exp sdktrace.SpanExporter
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(tracer.endpoint),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create the otlp exporter: %w", err)
		}

		if tracer.tailLatency > 0 {
			exp = NewTailLatencySpanExporter(exp, WithLatency(tracer.tailLatency))
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetTracerProvider(tp)

	return &sdkProvider{tp: tp}, nil
}

// TraceError records err on span and marks it failed.
func TraceError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
