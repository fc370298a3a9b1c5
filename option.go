package webmail

import (
	"log/slog"

	"github.com/rbaliyan/webmail/store"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Default message limits.
const (
	DefaultMaxSubjectLength   = 998              // RFC 5322 max line length
	DefaultMaxBodySize        = 10 * 1024 * 1024 // 10 MB
	DefaultMaxAttachmentSize  = 25 * 1024 * 1024 // 25 MB per attachment
	DefaultMaxAttachmentCount = 20               // max attachments per message
)

// options holds service configuration.
type options struct {
	store store.Store
	relay Relay

	logger *slog.Logger

	// Shared secret for inbound webhook signature verification.
	signingKey string

	// Message limits
	limits MessageLimits

	// OpenTelemetry
	tracingEnabled bool
	metricsEnabled bool
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		logger: slog.Default(),
		limits: DefaultLimits(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures the webmail service.
type Option func(*options)

// WithStore sets the storage backend (required).
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithRelay sets the outbound SMTP relay collaborator.
// Without a relay, Send persists the Sent copy only.
func WithRelay(r Relay) Option {
	return func(o *options) {
		o.relay = r
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSigningKey sets the shared secret used to verify inbound webhook
// signatures. Required for Ingest.
func WithSigningKey(key string) Option {
	return func(o *options) {
		o.signingKey = key
	}
}

// WithLimits overrides the default message limits.
// Zero fields keep their defaults.
func WithLimits(limits MessageLimits) Option {
	return func(o *options) {
		if limits.MaxSubjectLength > 0 {
			o.limits.MaxSubjectLength = limits.MaxSubjectLength
		}
		if limits.MaxBodySize > 0 {
			o.limits.MaxBodySize = limits.MaxBodySize
		}
		if limits.MaxAttachmentSize > 0 {
			o.limits.MaxAttachmentSize = limits.MaxAttachmentSize
		}
		if limits.MaxAttachmentCount > 0 {
			o.limits.MaxAttachmentCount = limits.MaxAttachmentCount
		}
	}
}

// WithTracing enables OpenTelemetry tracing.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables OpenTelemetry metrics.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithTracerProvider sets a custom tracer provider.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}
