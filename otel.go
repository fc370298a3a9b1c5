package webmail

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rbaliyan/webmail"

// Instrumented operations. Each gets a duration histogram, a count
// counter and an error counter.
const (
	opList   = "list"
	opGet    = "get"
	opSend   = "send"
	opFlag   = "flag"
	opIngest = "ingest"
)

var allOps = []string{opList, opGet, opSend, opFlag, opIngest}

// opInstruments holds the metric instruments for one operation.
type opInstruments struct {
	latency metric.Float64Histogram
	count   metric.Int64Counter
	errors  metric.Int64Counter
}

// otelInstrumentation holds OpenTelemetry instrumentation for the
// webmail service.
type otelInstrumentation struct {
	enabled bool

	// Tracing
	tracingEnabled bool
	tracer         trace.Tracer

	// Metrics
	metricsEnabled bool
	instruments    map[string]opInstruments
}

// newOtelInstrumentation creates new OTel instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes metric instruments for every operation.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	o.instruments = make(map[string]opInstruments, len(allOps))
	for _, op := range allOps {
		var inst opInstruments
		var err error

		inst.latency, err = meter.Float64Histogram(
			"webmail."+op+".duration",
			metric.WithDescription("Duration of "+op+" operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return err
		}

		inst.count, err = meter.Int64Counter(
			"webmail."+op+".count",
			metric.WithDescription("Number of "+op+" operations"),
		)
		if err != nil {
			return err
		}

		inst.errors, err = meter.Int64Counter(
			"webmail."+op+".errors",
			metric.WithDescription("Number of "+op+" errors"),
		)
		if err != nil {
			return err
		}

		o.instruments[op] = inst
	}

	return nil
}

// start begins instrumentation of one operation and returns the
// span-scoped context for the operation body. The returned function
// must be called exactly once with the operation's outcome; it records
// metrics and ends the span.
func (o *otelInstrumentation) start(ctx context.Context, op string) (context.Context, func(error)) {
	if !o.enabled {
		return ctx, func(error) {}
	}

	started := time.Now()

	var endSpan func(error)
	if o.tracingEnabled && o.tracer != nil {
		var span trace.Span
		ctx, span = o.tracer.Start(ctx, "webmail."+op,
			trace.WithAttributes(attribute.String("operation", op)),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		endSpan = func(err error) {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		}
	}

	return ctx, func(err error) {
		if o.metricsEnabled {
			if inst, ok := o.instruments[op]; ok {
				inst.latency.Record(ctx, time.Since(started).Seconds())
				inst.count.Add(ctx, 1)
				if err != nil {
					inst.errors.Add(ctx, 1)
				}
			}
		}
		if endSpan != nil {
			endSpan(err)
		}
	}
}
