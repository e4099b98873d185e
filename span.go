package miru

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/miru/internal/encode"
	"github.com/ashita-ai/miru/internal/extract"
	"github.com/ashita-ai/miru/semconv"
)

// activeSpanKey carries the innermost open Span in a context.Context. The
// context is the active-span mechanism: a new span's parent is whatever span
// rides the context it was started from, which scopes nesting to the logical
// unit of execution and keeps concurrent goroutines isolated from each other.
type activeSpanKey struct{}

// SpanFromContext returns the innermost open SDK span in ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(activeSpanKey{}).(*Span)
	return s
}

// Span is one recorded LLM operation. Its kind and name are immutable;
// attributes accumulate until the span closes, last write wins per key.
// A span closes exactly once, through the Ok or the Error path, and is never
// reopened. Spans are safe for concurrent attribute writes.
type Span struct {
	kind   semconv.SpanKind
	name   string
	parent *Span
	sdk    *sdkState
	otel   trace.Span

	// Capture behavior resolved at creation from global config + per-call
	// overrides.
	capture   bool
	sanitize  bool
	inAttr    string
	outAttr   string
	sizeLimit int

	mu         sync.Mutex
	attrs      map[string]any
	manual     map[string]struct{} // keys set explicitly; auto-extraction never overwrites these
	status     codes.Code
	closed     bool
	start      time.Time
	end        time.Time
	violations []semconv.Violation
}

// Kind returns the span's kind.
func (s *Span) Kind() semconv.SpanKind { return s.kind }

// Name returns the user-supplied operation name.
func (s *Span) Name() string { return s.name }

// Handle returns the attribute-update view of the span. Instrumented code
// only ever sees a Handle; closing the span stays with the engine (or, for
// the manual escape hatch, with whoever called StartSpan).
func (s *Span) Handle() *Handle { return &Handle{s: s} }

// Violations returns the contract violations recorded when the span closed.
// Empty until close; empty afterwards means the span was contract-clean.
func (s *Span) Violations() []semconv.Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]semconv.Violation(nil), s.violations...)
}

// Handle is the restricted span view handed to instrumented code: attribute
// updates only. It cannot close the span or reach the raw tracing primitives.
type Handle struct {
	s *Span
}

// SetAttribute records an attribute on the span, overwriting any previous
// value for the key. Non-finite floats are dropped: the contract requires
// numeric attributes to be finite when present. Setting attributes on a
// closed span is a no-op.
func (h *Handle) SetAttribute(key string, value any) {
	h.s.setAttr(key, value, true)
}

// SetUsage records token usage explicitly. A manual value always wins over
// automatic extraction from the return value.
func (h *Handle) SetUsage(promptTokens, completionTokens, totalTokens int) {
	h.s.setAttr(semconv.AttrUsagePromptTokens, int64(promptTokens), true)
	h.s.setAttr(semconv.AttrUsageCompletionTokens, int64(completionTokens), true)
	h.s.setAttr(semconv.AttrUsageTotalTokens, int64(totalTokens), true)
}

// SetError pre-classifies the span's error taxonomy attribute. Rarely needed:
// the engine classifies automatically when the wrapped call fails.
func (h *Handle) SetError(errType, message string) {
	h.s.setAttr(semconv.AttrErrorType, errType, true)
	h.s.setAttr(semconv.AttrErrorMessage, message, true)
}

func (s *Span) setAttr(key string, value any, manual bool) {
	value, ok := normalizeValue(value)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.attrs[key] = value
	if manual {
		s.manual[key] = struct{}{}
	}
}

func (s *Span) isManual(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.manual[key]
	return ok
}

// normalizeValue coerces value to the contract's scalar vocabulary
// (string, bool, int64, float64). Non-finite floats and unsupported types
// are rejected rather than recorded.
func normalizeValue(value any) (any, bool) {
	switch v := value.(type) {
	case string, bool, int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float32:
		return normalizeValue(float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		return v, true
	default:
		return nil, false
	}
}

// startSpan opens a span per cfg under the active span in ctx. An unknown
// span kind fails immediately: no span is created. The returned context
// carries the new span; when the span closes, the caller's original context
// still refers to the parent, so nesting reverts structurally.
func startSpan(ctx context.Context, cfg SpanConfig) (context.Context, *Span, error) {
	sdk := current()
	kind := cfg.spanKind()
	if _, err := semconv.Spec(kind); err != nil {
		return ctx, nil, err
	}

	seed := spanSeed{attrs: map[string]any{}}
	cfg.seed(&seed)

	s := &Span{
		kind:      kind,
		name:      cfg.spanName(),
		parent:    SpanFromContext(ctx),
		sdk:       sdk,
		capture:   resolveFlag(seed.captureIO, sdk.captureIO),
		sanitize:  resolveFlag(seed.sanitize, sdk.sanitize),
		inAttr:    seed.inAttr,
		outAttr:   seed.outAttr,
		sizeLimit: seed.limit(sdk),
		attrs:     make(map[string]any, len(seed.attrs)+8),
		manual:    make(map[string]struct{}),
		start:     time.Now(),
	}

	octx, ospan := sdk.tracer.Start(ctx, s.name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(s.start),
	)
	s.otel = ospan

	s.attrs[semconv.AttrOperationType] = string(kind)
	s.attrs[semconv.AttrOperationName] = s.name
	for k, v := range seed.attrs {
		if nv, ok := normalizeValue(v); ok {
			s.attrs[k] = nv
		}
	}

	return context.WithValue(octx, activeSpanKey{}, s), s, nil
}

func resolveFlag(override *bool, global bool) bool {
	if override != nil {
		return *override
	}
	return global
}

// StartSpan is the manual escape hatch: it opens a span and returns it with a
// context carrying it as the active span. The caller owns closure: call
// End (or EndError) on every path, or the span leaks. Prefer Observe or the
// Wrap functions, which guarantee closure.
func StartSpan(ctx context.Context, cfg SpanConfig) (context.Context, *Span, error) {
	return startSpan(ctx, cfg)
}

// End closes the span through the Ok path. Validation against the attribute
// contract runs here; in lenient mode a dirty span is exported with a
// violation marker, in strict mode it is dropped. Closing twice is a no-op.
func (s *Span) End() {
	s.close(nil)
}

// EndError closes the span through the Error path: error taxonomy attributes
// are recorded and the span status is set to Error. The error itself is not
// consumed; callers still propagate it.
func (s *Span) EndError(err error) {
	s.close(err)
}

// finishOK applies the Ok-path finalization for wrapped calls: best-effort
// token-usage extraction and output capture from the return value, then close.
func (s *Span) finishOK(result any) {
	s.extractUsage(result)
	s.captureOutput(result)
	s.close(nil)
}

// extractUsage tries the ordered usage shape matchers against result. A
// manually set usage key makes extraction back off entirely (no per-field
// merging), and nothing is recorded when no shape matches. Zero is not a
// stand-in for unknown.
func (s *Span) extractUsage(result any) {
	if s.isManual(semconv.AttrUsagePromptTokens) ||
		s.isManual(semconv.AttrUsageCompletionTokens) ||
		s.isManual(semconv.AttrUsageTotalTokens) {
		return
	}
	u, ok := extract.FromResponse(result)
	if !ok {
		return
	}
	if u.HasPrompt {
		s.setAttr(semconv.AttrUsagePromptTokens, u.Prompt, false)
	}
	if u.HasCompletion {
		s.setAttr(semconv.AttrUsageCompletionTokens, u.Completion, false)
	}
	if u.HasTotal {
		s.setAttr(semconv.AttrUsageTotalTokens, u.Total, false)
	}
}

// captureInput records the wrapped call's input, subject to the type-based
// safety filter: values of unrecognized type or over the size bound are
// omitted, never truncated. Omission is the default for arguments.
func (s *Span) captureInput(in any) {
	if !s.capture || s.inAttr == "" {
		return
	}
	encoded, ok := encode.Capture(in, s.sizeLimit)
	if !ok {
		return
	}
	if s.sanitize {
		encoded = encode.Sanitize(encoded, s.sdk.ruleset)
	}
	s.setAttr(s.inAttr, encoded, false)
}

// captureOutput records the wrapped call's result with size-bounded encoding.
// Over-length content is truncated with a visible marker, never silently.
// An output attribute the caller set manually is left alone.
func (s *Span) captureOutput(out any) {
	if !s.capture || s.outAttr == "" || s.isManual(s.outAttr) {
		return
	}
	encoded, truncated, err := encode.JSON(out, s.sizeLimit)
	if err != nil {
		return
	}
	if s.sanitize {
		encoded = encode.Sanitize(encoded, s.sdk.ruleset)
	}
	if truncated {
		s.sdk.logger.Debug("miru: output truncated", "span", s.name, "attribute", s.outAttr)
	}
	s.setAttr(s.outAttr, encoded, false)
}

// close finalizes the span exactly once: error mapping, contract validation,
// adapter attribute mapping, and handoff to the tracing substrate.
func (s *Span) close(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.end = time.Now()

	if err != nil {
		s.status = codes.Error
		if _, ok := s.attrs[semconv.AttrErrorType]; !ok {
			s.attrs[semconv.AttrErrorType] = classifyError(err)
		}
		s.attrs[semconv.AttrErrorMessage] = err.Error()
		if code, ok := errorCode(err); ok {
			s.attrs[semconv.AttrErrorCode] = code
		}
	} else {
		s.status = codes.Ok
	}

	violations, verr := semconv.Validate(s.kind, s.attrs, semconv.ValidateOptions{
		AllowedPrefixes: s.sdk.allowedPrefixes,
	})
	if verr == nil && len(violations) > 0 {
		s.violations = violations
		if marker, merr := json.Marshal(violations); merr == nil {
			s.attrs[semconv.AttrContractViolations] = string(marker)
		}
	}

	attrs := make(map[string]any, len(s.attrs))
	for k, v := range s.attrs {
		attrs[k] = v
	}
	s.mu.Unlock()

	if len(violations) > 0 {
		cvErr := &ContractViolationError{Kind: s.kind, Name: s.name, Violations: violations}
		if s.sdk.strict {
			s.sdk.logger.Error("miru: contract violation, span will not be exported",
				"span", s.name, "kind", string(s.kind), "violations", len(violations))
		} else {
			s.sdk.logger.Warn("miru: contract violation, span exported with marker",
				"span", s.name, "kind", string(s.kind), "violations", len(violations))
		}
		if s.sdk.violationHandler != nil {
			s.sdk.violationHandler(cvErr)
		}
	}

	s.otel.SetAttributes(toKeyValues(s.sdk.adapter.MapAttributes(attrs))...)
	if err != nil {
		s.otel.RecordError(err)
		s.otel.SetStatus(codes.Error, err.Error())
	} else {
		s.otel.SetStatus(codes.Ok, "")
	}
	s.otel.End(trace.WithTimestamp(s.end))
}

func toKeyValues(attrs map[string]any) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch tv := v.(type) {
		case string:
			kvs = append(kvs, attribute.String(k, tv))
		case bool:
			kvs = append(kvs, attribute.Bool(k, tv))
		case int64:
			kvs = append(kvs, attribute.Int64(k, tv))
		case float64:
			kvs = append(kvs, attribute.Float64(k, tv))
		default:
			// Adapters may only rename or transform within the scalar
			// vocabulary; anything else is stringified.
			kvs = append(kvs, attribute.String(k, fmt.Sprint(tv)))
		}
	}
	return kvs
}

// Observe is the scoped-context form: it opens a span per cfg, runs fn with
// the span's Handle, and guarantees closure on every exit path: normal
// return, error, or panic. The error from fn propagates unchanged.
func Observe(ctx context.Context, cfg SpanConfig, fn func(ctx context.Context, h *Handle) error) error {
	ctx, s, err := startSpan(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			s.close(fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	if err := fn(ctx, s.Handle()); err != nil {
		s.close(err)
		return err
	}
	s.close(nil)
	return nil
}
