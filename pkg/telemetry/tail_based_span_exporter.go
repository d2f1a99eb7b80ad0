package telemetry

import (
	"context"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const DefaultTailLatency = time.Second

type tailLatencySpanExporter struct {
	wrapped sdktrace.SpanExporter
	latency time.Duration
}

type TailLatencyOption func(t *tailLatencySpanExporter)

func WithLatency(latency time.Duration) TailLatencyOption {
	return func(t *tailLatencySpanExporter) {
		t.latency = latency
	}
}

var _ sdktrace.SpanExporter = (*tailLatencySpanExporter)(nil)

// NewTailLatencySpanExporter returns a SpanExporter forwarding to exporter
// only the spans of traces whose root span lasted at least the configured
// latency. A nil exporter drops everything.
func NewTailLatencySpanExporter(exporter sdktrace.SpanExporter, opts ...TailLatencyOption) sdktrace.SpanExporter {
	t := &tailLatencySpanExporter{
		wrapped: exporter,
		latency: DefaultTailLatency,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *tailLatencySpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if t.wrapped == nil {
		return nil
	}

	slow := make(map[trace.TraceID]struct{})
	for _, span := range spans {
		if span.Parent().IsValid() {
			continue
		}
		if span.EndTime().Sub(span.StartTime()) >= t.latency {
			slow[span.SpanContext().TraceID()] = struct{}{}
		}
	}
	if len(slow) == 0 {
		return nil
	}

	kept := make([]sdktrace.ReadOnlySpan, 0, len(spans))
	for _, span := range spans {
		if _, ok := slow[span.SpanContext().TraceID()]; ok {
			kept = append(kept, span)
		}
	}

	return t.wrapped.ExportSpans(ctx, kept)
}

func (t *tailLatencySpanExporter) Shutdown(ctx context.Context) error {
	if t.wrapped == nil {
		return nil
	}
	return t.wrapped.Shutdown(ctx)
}
