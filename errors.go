package miru

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashita-ai/miru/adapter"
	"github.com/ashita-ai/miru/semconv"
)

// ContractViolationError reports a span that closed with missing or mistyped
// required attributes. In strict mode it is handed to the violation handler
// and the span is never exported; in lenient mode the span is exported with a
// violation marker and this error is only logged.
type ContractViolationError struct {
	Kind       semconv.SpanKind
	Name       string
	Violations []semconv.Violation
}

func (e *ContractViolationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("miru: span %q (%s) violates contract: %s", e.Name, e.Kind, strings.Join(parts, "; "))
}

// IsUnknownSpanKind reports whether err is an unknown-span-kind error.
// Unknown kinds are always fatal to the call: no span is created.
func IsUnknownSpanKind(err error) bool {
	var e *semconv.ErrUnknownSpanKind
	return errors.As(err, &e)
}

// IsMappingCollision reports whether err is an adapter mapping collision.
// Collisions are detected at configure time; the adapter refuses to activate.
func IsMappingCollision(err error) bool {
	var e *adapter.ErrMappingCollision
	return errors.As(err, &e)
}

// IsContractViolation reports whether err is a contract violation.
func IsContractViolation(err error) bool {
	var e *ContractViolationError
	return errors.As(err, &e)
}

// errorTyper lets wrapped errors declare their own taxonomy bucket,
// overriding classification heuristics.
type errorTyper interface {
	ErrorType() string
}

// errorCoder lets wrapped errors expose a provider-specific code, recorded
// as llm.error.code when present.
type errorCoder interface {
	ErrorCode() string
}

// classifyError buckets err into the contract's error taxonomy. Classifiers
// run in order; the first match wins and the fallback is "unknown".
func classifyError(err error) string {
	var typed errorTyper
	if errors.As(err, &typed) {
		return typed.ErrorType()
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return "rate_limit"
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "api key") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return "auth"
	case strings.Contains(msg, "invalid"):
		return "invalid_input"
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return "timeout"
	default:
		return "unknown"
	}
}

// errorCode extracts a provider-specific code from err, if it carries one.
func errorCode(err error) (string, bool) {
	var coded errorCoder
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return "", false
}
