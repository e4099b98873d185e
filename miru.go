// Package miru is an LLM observability SDK: a semantic-contract layer and
// span-lifecycle engine on top of OpenTelemetry tracing.
//
// It instruments LLM calls, agents, tools, retrievers, embeddings, workflows,
// and prompt rendering with a stable attribute contract ("llm." namespace),
// automatic parent/child nesting via context.Context, safe input/output
// capture with truncation and opt-in PII redaction, best-effort token-usage
// extraction, and backend adapters that remap attribute names without ever
// touching span semantics.
//
//	shutdown, err := miru.Configure(ctx,
//	    miru.WithAdapter(adapter.NewOTLP("tempo:4317", adapter.WithInsecure())),
//	    miru.WithService("log-analyzer", "1.0.0"),
//	)
//	if err != nil { ... }
//	defer shutdown(ctx)
//
//	summarize := miru.WrapLLM(miru.LLMCall{
//	    Name: "summarize", Model: "gpt-4o", Provider: "openai",
//	}, callOpenAI)
//
// Configure is a "configure once, before first use" contract: the resolved
// configuration is read-mostly shared state, safe for concurrent span
// creation but not for concurrent reconfiguration.
package miru

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/miru/adapter"
	"github.com/ashita-ai/miru/internal/encode"
	"github.com/ashita-ai/miru/internal/telemetry"
	"github.com/ashita-ai/miru/semconv"
)

// instrumentationName identifies this SDK as the tracer scope.
const instrumentationName = "github.com/ashita-ai/miru"

// Shutdown flushes buffered spans and stops the exporter pipeline.
type Shutdown func(ctx context.Context) error

// sdkState is the resolved, immutable-after-Configure SDK configuration.
type sdkState struct {
	adapter          adapter.Adapter
	tracer           trace.Tracer
	logger           *slog.Logger
	strict           bool
	captureIO        bool
	sanitize         bool
	ruleset          encode.Ruleset
	messageLimit     int
	toolLimit        int
	allowedPrefixes  []string
	violationHandler func(error)
}

var state atomic.Pointer[sdkState]

// current returns the configured state, or an unconfigured default that spans
// against the global OpenTelemetry provider with lenient validation. This
// keeps instrumentation inert-but-correct before Configure runs.
func current() *sdkState {
	if s := state.Load(); s != nil {
		return s
	}
	return &sdkState{
		adapter:      adapter.NewOTLP(""),
		tracer:       otel.Tracer(instrumentationName),
		logger:       slog.Default(),
		captureIO:    true,
		ruleset:      encode.DefaultRuleset(),
		messageLimit: encode.MaxMessageBytes,
		toolLimit:    encode.MaxToolBytes,
	}
}

// Configure initializes the SDK: adapter selection, exporter pipeline, and
// engine behavior. Environment variables provide defaults (a .env file is
// loaded if present); options override them. The adapter's mapping is
// validated here: a colliding adapter refuses to activate and Configure
// fails before any span is created.
func Configure(ctx context.Context, opts ...Option) (Shutdown, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env if present (non-fatal; production won't have one).
	_ = godotenv.Load()
	cfg := loadConfig()

	if o.serviceName != "" {
		cfg.ServiceName = o.serviceName
	}
	if o.serviceVersion != "" {
		cfg.ServiceVersion = o.serviceVersion
	}
	if o.environment != "" {
		cfg.Environment = o.environment
	}
	if o.captureIO != nil {
		cfg.CaptureIO = *o.captureIO
	}
	if o.sanitize != nil {
		cfg.Sanitize = *o.sanitize
	}
	if o.strict != nil {
		cfg.Strict = *o.strict
	}
	if o.messageLimit > 0 {
		cfg.MessageLimit = o.messageLimit
	}
	if o.toolLimit > 0 {
		cfg.ToolLimit = o.toolLimit
	}

	ad := o.adapter
	if ad == nil {
		var err error
		if ad, err = adapterFromConfig(cfg); err != nil {
			return nil, err
		}
	}
	if err := validateAdapter(ad); err != nil {
		return nil, fmt.Errorf("adapter %q: %w", ad.Name(), err)
	}

	var (
		tp       trace.TracerProvider
		shutdown Shutdown = func(context.Context) error { return nil }
	)
	if o.tracerProvider != nil {
		tp = o.tracerProvider
	} else {
		provider, stop, err := telemetry.Init(ctx, ad.Endpoint(), telemetry.Identity{
			ServiceName:    cfg.ServiceName,
			ServiceVersion: cfg.ServiceVersion,
			Environment:    cfg.Environment,
		}, ad.ResourceAttributes(), cfg.Strict, mappedViolationKey(ad))
		if err != nil {
			return nil, err
		}
		tp = provider
		shutdown = Shutdown(stop)
	}

	ruleset := o.ruleset
	if ruleset == nil {
		ruleset = encode.DefaultRuleset()
	}

	s := &sdkState{
		adapter:          ad,
		tracer:           tp.Tracer(instrumentationName),
		logger:           logger,
		strict:           cfg.Strict,
		captureIO:        cfg.CaptureIO,
		sanitize:         cfg.Sanitize,
		ruleset:          ruleset,
		messageLimit:     cfg.MessageLimit,
		toolLimit:        cfg.ToolLimit,
		allowedPrefixes:  o.allowedPrefixes,
		violationHandler: o.violationHandler,
	}
	state.Store(s)

	logger.Info("miru configured",
		"adapter", ad.Name(),
		"service", cfg.ServiceName,
		"strict", cfg.Strict,
		"capture_io", cfg.CaptureIO,
	)
	return shutdown, nil
}

// adapterFromConfig builds the env-selected adapter. Only adapters that need
// no code-level arguments can be chosen this way.
func adapterFromConfig(cfg Config) (adapter.Adapter, error) {
	switch cfg.Adapter {
	case "otlp":
		opts := []adapter.OTLPOption{}
		if cfg.Protocol == "http" {
			opts = append(opts, adapter.WithProtocol(adapter.ProtocolHTTP))
		}
		if cfg.Insecure {
			opts = append(opts, adapter.WithInsecure())
		}
		return adapter.NewOTLP(cfg.Endpoint, opts...), nil
	case "stdout":
		return adapter.NewStdout(), nil
	default:
		return nil, fmt.Errorf("miru: adapter %q is not env-selectable (use WithAdapter)", cfg.Adapter)
	}
}

// validateAdapter feeds every contract key through MapAttributes and rejects
// dropped keys and destination collisions. Adapters may add attributes
// derived from the input plus static configuration, so extra output keys are
// fine; losing a contract value, or two contract keys landing on one
// destination, is a table error. This catches mistakes in third-party
// adapters that never went through adapter.Mapping.Validate. The sentinel is
// compared by identity, so a derived attribute can never be mistaken for the
// mapped one.
func validateAdapter(a adapter.Adapter) error {
	sources := make(map[string]struct{})
	for _, kind := range semconv.Kinds() {
		spec, err := semconv.Spec(kind)
		if err != nil {
			return err
		}
		for key := range spec {
			sources[key] = struct{}{}
		}
	}

	sentinel := new(int)
	dests := make(map[string]string, len(sources))
	for src := range sources {
		mapped := a.MapAttributes(map[string]any{src: any(sentinel)})
		found := false
		for dst, v := range mapped {
			if v != any(sentinel) {
				continue
			}
			found = true
			if prev, ok := dests[dst]; ok {
				return &adapter.ErrMappingCollision{Destination: dst, Sources: []string{prev, src}}
			}
			dests[dst] = src
		}
		if !found {
			return fmt.Errorf("mapping drops attribute %q", src)
		}
	}
	return nil
}

// mappedViolationKey returns the violation marker key as the backend sees it,
// so strict-mode filtering still works for adapters that rename it.
func mappedViolationKey(a adapter.Adapter) string {
	sentinel := new(int)
	for key, v := range a.MapAttributes(map[string]any{semconv.AttrContractViolations: any(sentinel)}) {
		if v == any(sentinel) {
			return key
		}
	}
	return semconv.AttrContractViolations
}

// NewSessionID returns a fresh session identifier for the llm.session.id
// attribute, grouping spans across one conversation.
func NewSessionID() string {
	return uuid.NewString()
}
