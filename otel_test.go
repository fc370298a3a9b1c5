package webmail

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	"go.opentelemetry.io/otel/trace/noop"
)

type spanNameKey struct{}

// markingTracer stamps the span name into the returned context so tests
// can tell whether callers received the span-scoped context.
type markingTracer struct {
	embedded.Tracer
}

func (markingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	return context.WithValue(ctx, spanNameKey{}, name), noop.Span{}
}

type markingTracerProvider struct {
	embedded.TracerProvider
}

func (markingTracerProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return markingTracer{}
}

func TestStartReturnsSpanContext(t *testing.T) {
	t.Run("tracing enabled", func(t *testing.T) {
		o := newOptions(WithTracing(true), WithTracerProvider(markingTracerProvider{}))
		inst, err := newOtelInstrumentation(o)
		if err != nil {
			t.Fatalf("newOtelInstrumentation: %v", err)
		}

		ctx, end := inst.start(context.Background(), opSend)
		defer end(nil)

		// The operation body must run under the span's context so store
		// calls become children of the span.
		if got := ctx.Value(spanNameKey{}); got != "webmail.send" {
			t.Errorf("context span name = %v, want webmail.send", got)
		}
	})

	t.Run("disabled passes context through", func(t *testing.T) {
		inst, err := newOtelInstrumentation(newOptions())
		if err != nil {
			t.Fatalf("newOtelInstrumentation: %v", err)
		}

		parent := context.Background()
		ctx, end := inst.start(parent, opList)
		defer end(nil)

		if ctx != parent {
			t.Error("disabled instrumentation replaced the context")
		}
	})
}
