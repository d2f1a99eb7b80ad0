package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

func TestTracing(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(),
		WithAttributes(semconv.DeploymentEnvironment("test")),
		WithSamplingRatio(1),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, tp.Close(context.Background()))
	})

	spanRecorder := tracetest.NewSpanRecorder()
	tp.RegisterSpanProcessor(spanRecorder)

	_, span := tp.Tracer("").Start(context.Background(), "test")
	span.End()

	spans := spanRecorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "test", spans[0].Name())
}

func TestTracerProviderCloseTwice(t *testing.T) {
	tp, err := NewTracerProvider(context.Background())
	require.NoError(t, err)

	require.NoError(t, tp.Close(context.Background()))
	require.NoError(t, tp.Close(context.Background()))
}

func TestNoop(t *testing.T) {
	tp := Noop()
	tp.RegisterSpanProcessor(tracetest.NewSpanRecorder())

	_, span := tp.Tracer("kgview").Start(context.Background(), "test")
	require.False(t, span.IsRecording())
	require.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tp.Close(context.Background()))
}

func TestHTTPHandlerStartsServerSpan(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), WithSamplingRatio(1))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, tp.Close(context.Background()))
	})

	spanRecorder := tracetest.NewSpanRecorder()
	tp.RegisterSpanProcessor(spanRecorder)

	var sawSpan bool
	h := HTTPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawSpan = trace.SpanContextFromContext(r.Context()).IsValid()
	}), "graph")

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/graph", nil))

	require.True(t, sawSpan)
	require.Len(t, spanRecorder.Ended(), 1)
}

type recordingExporter struct {
	exported []string
}

func (r *recordingExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		r.exported = append(r.exported, s.Name())
	}
	return nil
}

func (r *recordingExporter) Shutdown(context.Context) error {
	return nil
}

func TestTailLatencySpanExporter(t *testing.T) {
	stubs := tracetest.SpanStubs{
		{Name: "fast", StartTime: time.Unix(0, 0), EndTime: time.Unix(0, 0).Add(10 * time.Millisecond), SpanContext: spanContext(1, 1)},
		{Name: "slow", StartTime: time.Unix(0, 0), EndTime: time.Unix(2, 0), SpanContext: spanContext(2, 2)},
		{Name: "slow-child", StartTime: time.Unix(0, 0), EndTime: time.Unix(0, 1), SpanContext: spanContext(2, 3), Parent: spanContext(2, 2)},
	}

	rec := &recordingExporter{}
	exp := NewTailLatencySpanExporter(rec, WithLatency(time.Second))
	require.NoError(t, exp.ExportSpans(context.Background(), stubs.Snapshots()))
	require.Equal(t, []string{"slow", "slow-child"}, rec.exported)

	require.NoError(t, NewTailLatencySpanExporter(nil).ExportSpans(context.Background(), stubs.Snapshots()))
}

func spanContext(traceID, spanID byte) trace.SpanContext {
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{traceID},
		SpanID:  trace.SpanID{spanID},
	})
}
