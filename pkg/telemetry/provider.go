package telemetry

import (
	"context"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerProvider is the process wide provider handed to otel. Close flushes
// pending spans and must be called once on shutdown.
type TracerProvider interface {
	trace.TracerProvider

	Close(context.Context) error
	RegisterSpanProcessor(sdktrace.SpanProcessor)
}

// sdkProvider exports through the sdk. Close is safe to call more than once.
type sdkProvider struct {
	embedded.TracerProvider

	mu sync.Mutex
	tp *sdktrace.TracerProvider
}

var _ TracerProvider = (*sdkProvider)(nil)

func (p *sdkProvider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	return p.tp.Tracer(name, options...)
}

func (p *sdkProvider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tp == nil {
		return nil
	}
	if err := p.tp.ForceFlush(ctx); err != nil {
		return err
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return err
	}
	p.tp = nil
	return nil
}

func (p *sdkProvider) RegisterSpanProcessor(sp sdktrace.SpanProcessor) {
	p.tp.RegisterSpanProcessor(sp)
}

// noopProvider is installed when tracing is disabled, so spans started by the
// pipeline and the datastores cost nothing.
type noopProvider struct {
	noop.TracerProvider
}

func (noopProvider) Close(context.Context) error { return nil }

func (noopProvider) RegisterSpanProcessor(sdktrace.SpanProcessor) {}

// Noop returns a provider whose tracers record nothing.
func Noop() TracerProvider {
	return noopProvider{TracerProvider: noop.NewTracerProvider()}
}
