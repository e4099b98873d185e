package miru

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/miru/adapter"
	"github.com/ashita-ai/miru/internal/encode"
)

// Option configures the SDK at Configure time.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	adapter          adapter.Adapter
	logger           *slog.Logger
	tracerProvider   trace.TracerProvider
	serviceName      string
	serviceVersion   string
	environment      string
	captureIO        *bool
	sanitize         *bool
	strict           *bool
	ruleset          encode.Ruleset
	messageLimit     int
	toolLimit        int
	allowedPrefixes  []string
	violationHandler func(error)
}

// WithAdapter selects the backend adapter. Defaults to the env-configured
// OTLP pass-through adapter.
func WithAdapter(a adapter.Adapter) Option {
	return func(o *resolvedOptions) { o.adapter = a }
}

// WithLogger sets the structured logger for the SDK.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithTracerProvider bypasses exporter construction and uses the given
// provider directly. Intended for tests (in-memory exporters) and for hosts
// that already own a TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *resolvedOptions) { o.tracerProvider = tp }
}

// WithService sets the service identity recorded as resource attributes.
func WithService(name, version string) Option {
	return func(o *resolvedOptions) {
		o.serviceName = name
		o.serviceVersion = version
	}
}

// WithEnvironment sets the deployment environment (dev, staging, prod).
func WithEnvironment(env string) Option {
	return func(o *resolvedOptions) { o.environment = env }
}

// WithCaptureIO toggles input/output capture globally. Per-call configs can
// still override it span by span.
func WithCaptureIO(enabled bool) Option {
	return func(o *resolvedOptions) { o.captureIO = &enabled }
}

// WithSanitize toggles PII redaction of captured content. Off by default;
// the engine never redacts unless asked.
func WithSanitize(enabled bool) Option {
	return func(o *resolvedOptions) { o.sanitize = &enabled }
}

// WithSanitizeRules replaces the default redaction ruleset. Implies nothing
// about the sanitize flag itself.
func WithSanitizeRules(rs encode.Ruleset) Option {
	return func(o *resolvedOptions) { o.ruleset = rs }
}

// WithStrictValidation makes contract violations block export: the violating
// span is logged loudly and dropped before it reaches the backend. Default is
// lenient (export with a violation marker). Test harnesses should be strict.
func WithStrictValidation(enabled bool) Option {
	return func(o *resolvedOptions) { o.strict = &enabled }
}

// WithCaptureLimits overrides the serialized-size bounds for captured
// content: messageBytes for message-class fields, toolBytes for tool-class
// fields. Defaults are 4096 and 2048.
func WithCaptureLimits(messageBytes, toolBytes int) Option {
	return func(o *resolvedOptions) {
		o.messageLimit = messageBytes
		o.toolLimit = toolBytes
	}
}

// WithAttributePrefix allows a caller-owned attribute namespace (e.g.
// "myapp.") to pass validation. The reserved "llm." prefix cannot be allowed
// this way. May be given multiple times.
func WithAttributePrefix(prefix string) Option {
	return func(o *resolvedOptions) { o.allowedPrefixes = append(o.allowedPrefixes, prefix) }
}

// WithViolationHandler registers a callback invoked with a
// *ContractViolationError whenever a span closes contract-dirty. Useful in
// test harnesses that want strict failures surfaced as test errors.
func WithViolationHandler(fn func(error)) Option {
	return func(o *resolvedOptions) { o.violationHandler = fn }
}
