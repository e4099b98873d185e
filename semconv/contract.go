package semconv

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// AttributeType is the wire-level type an attribute value must carry.
type AttributeType string

const (
	TypeString AttributeType = "string"
	TypeInt    AttributeType = "int"
	TypeFloat  AttributeType = "float"
	TypeBool   AttributeType = "bool"

	// TypeJSONString is a string whose content must be valid JSON. Complex
	// values cross the span boundary in this form, never as nested structures.
	TypeJSONString AttributeType = "json_string"
)

// Range bounds a numeric attribute. Nil bounds are unbounded.
type Range struct {
	Min *float64
	Max *float64
}

func bounds(min, max float64) *Range { return &Range{Min: &min, Max: &max} }
func atLeast(min float64) *Range     { return &Range{Min: &min} }

// Attribute declares the contract for a single attribute within a span kind.
type Attribute struct {
	Type       AttributeType
	Required   bool
	ValidRange *Range // nil for non-numeric or unbounded attributes
}

// AttributeSpec maps attribute names to their declarations for one span kind.
type AttributeSpec map[string]Attribute

// ErrUnknownSpanKind is returned by Spec for kinds outside the closed enumeration.
type ErrUnknownSpanKind struct {
	Kind SpanKind
}

func (e *ErrUnknownSpanKind) Error() string {
	return fmt.Sprintf("semconv: unknown span kind %q", string(e.Kind))
}

// commonSpec holds the attributes shared by every span kind.
var commonSpec = AttributeSpec{
	AttrOperationType:      {Type: TypeString, Required: true},
	AttrOperationName:      {Type: TypeString, Required: true},
	AttrSessionID:          {Type: TypeString},
	AttrStreaming:          {Type: TypeBool},
	AttrStreamingPartial:   {Type: TypeBool},
	AttrInputValue:         {Type: TypeJSONString},
	AttrOutputValue:        {Type: TypeJSONString},
	AttrErrorType:          {Type: TypeString},
	AttrErrorMessage:       {Type: TypeString},
	AttrErrorCode:          {Type: TypeString},
	AttrContractViolations: {Type: TypeJSONString},
}

// kindSpecs holds the per-kind attributes layered over commonSpec.
// Single source of truth: the lifecycle engine and adapters never hardcode
// requiredness; they ask Spec.
var kindSpecs = map[SpanKind]AttributeSpec{
	SpanKindLLMCall: {
		AttrModel:                 {Type: TypeString, Required: true},
		AttrProvider:              {Type: TypeString},
		AttrTemperature:           {Type: TypeFloat, ValidRange: bounds(0, 2)},
		AttrMaxTokens:             {Type: TypeInt, ValidRange: atLeast(1)},
		AttrTopP:                  {Type: TypeFloat, ValidRange: bounds(0, 1)},
		AttrTopK:                  {Type: TypeInt, ValidRange: atLeast(1)},
		AttrFrequencyPenalty:      {Type: TypeFloat, ValidRange: bounds(-2, 2)},
		AttrPresencePenalty:       {Type: TypeFloat, ValidRange: bounds(-2, 2)},
		AttrInputMessages:         {Type: TypeJSONString},
		AttrOutputMessage:         {Type: TypeJSONString},
		AttrUsagePromptTokens:     {Type: TypeInt, ValidRange: atLeast(0)},
		AttrUsageCompletionTokens: {Type: TypeInt, ValidRange: atLeast(0)},
		AttrUsageTotalTokens:      {Type: TypeInt, ValidRange: atLeast(0)},
	},
	SpanKindAgent: {
		AttrAgentType:       {Type: TypeString},
		AttrAgentIterations: {Type: TypeInt, ValidRange: atLeast(0)},
		AttrAgentTools:      {Type: TypeJSONString},
	},
	SpanKindTool: {
		AttrToolName:   {Type: TypeString, Required: true},
		AttrToolInput:  {Type: TypeJSONString},
		AttrToolOutput: {Type: TypeJSONString},
	},
	SpanKindRetriever: {
		AttrRetrieverSource:       {Type: TypeString, Required: true},
		AttrRetrieverType:         {Type: TypeString},
		AttrRetrieverQuery:        {Type: TypeString},
		AttrRetrieverTopK:         {Type: TypeInt, ValidRange: atLeast(1)},
		AttrRetrieverResultsCount: {Type: TypeInt, ValidRange: atLeast(0)},
	},
	SpanKindEmbedding: {
		AttrModel:               {Type: TypeString},
		AttrProvider:            {Type: TypeString},
		AttrEmbeddingInputCount: {Type: TypeInt, ValidRange: atLeast(0)},
		AttrEmbeddingDimensions: {Type: TypeInt, ValidRange: atLeast(1)},
	},
	SpanKindWorkflow: {
		AttrWorkflowSteps:       {Type: TypeJSONString},
		AttrWorkflowCurrentStep: {Type: TypeString},
	},
	SpanKindPromptRegistry: {
		AttrPromptID:            {Type: TypeString, Required: true},
		AttrPromptVersion:       {Type: TypeString},
		AttrPromptTemplateHash:  {Type: TypeString},
		AttrPromptVariablesHash: {Type: TypeString},
		AttrPromptRenderedHash:  {Type: TypeString},
	},
}

// Spec returns the full attribute specification for kind, common attributes
// included. The returned map is shared; callers must not mutate it.
func Spec(kind SpanKind) (AttributeSpec, error) {
	extra, ok := kindSpecs[kind]
	if !ok {
		return nil, &ErrUnknownSpanKind{Kind: kind}
	}
	spec := make(AttributeSpec, len(commonSpec)+len(extra))
	for k, v := range commonSpec {
		spec[k] = v
	}
	for k, v := range extra {
		spec[k] = v
	}
	return spec, nil
}

// ViolationKind classifies a single contract violation.
type ViolationKind string

const (
	ViolationMissing    ViolationKind = "missing_required"
	ViolationWrongType  ViolationKind = "wrong_type"
	ViolationOutOfRange ViolationKind = "out_of_range"
	ViolationUnknownKey ViolationKind = "unknown_key"
)

// Violation describes one way a span's attributes failed the contract.
type Violation struct {
	Attribute string        `json:"attribute"`
	Kind      ViolationKind `json:"kind"`
	Message   string        `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Attribute, v.Message, v.Kind)
}

// ValidateOptions tunes which attribute keys Validate accepts beyond the contract.
type ValidateOptions struct {
	// AllowedPrefixes are caller-owned extension namespaces (e.g. "myapp.").
	// Keys under an allowed prefix bypass the spec entirely. The reserved
	// "llm." prefix can never be allowed this way.
	AllowedPrefixes []string
}

// Validate checks attrs against the contract for kind. It is pure and never
// fails itself: an unknown kind is reported as the caller's UnknownSpanKind
// concern via Spec, and every contract problem is returned as a Violation.
// An empty result means the span is contract-clean.
func Validate(kind SpanKind, attrs map[string]any, opts ValidateOptions) ([]Violation, error) {
	spec, err := Spec(kind)
	if err != nil {
		return nil, err
	}

	var violations []Violation

	for name, decl := range spec {
		if !decl.Required {
			continue
		}
		if _, ok := attrs[name]; !ok {
			violations = append(violations, Violation{
				Attribute: name,
				Kind:      ViolationMissing,
				Message:   "required attribute is missing",
			})
		}
	}

	for name, value := range attrs {
		decl, declared := spec[name]
		if !declared {
			if allowedPrefix(name, opts.AllowedPrefixes) {
				continue
			}
			msg := "attribute is not declared for this span kind"
			if !strings.HasPrefix(name, ReservedPrefix) {
				msg = "attribute is outside the reserved namespace and no extension prefix allows it"
			}
			violations = append(violations, Violation{
				Attribute: name,
				Kind:      ViolationUnknownKey,
				Message:   msg,
			})
			continue
		}
		violations = append(violations, checkValue(name, decl, value)...)
	}

	return violations, nil
}

func allowedPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" || strings.HasPrefix(p, ReservedPrefix) {
			continue
		}
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func checkValue(name string, decl Attribute, value any) []Violation {
	var violations []Violation

	wrongType := func() {
		violations = append(violations, Violation{
			Attribute: name,
			Kind:      ViolationWrongType,
			Message:   fmt.Sprintf("expected %s, got %T", decl.Type, value),
		})
	}

	switch decl.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			wrongType()
		}

	case TypeJSONString:
		s, ok := value.(string)
		if !ok {
			wrongType()
			break
		}
		if !json.Valid([]byte(s)) {
			violations = append(violations, Violation{
				Attribute: name,
				Kind:      ViolationWrongType,
				Message:   "value is not valid JSON",
			})
		}

	case TypeBool:
		if _, ok := value.(bool); !ok {
			wrongType()
		}

	case TypeInt:
		n, ok := asInt(value)
		if !ok {
			wrongType()
			break
		}
		violations = append(violations, checkRange(name, decl.ValidRange, float64(n))...)

	case TypeFloat:
		f, ok := asFloat(value)
		if !ok {
			wrongType()
			break
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			violations = append(violations, Violation{
				Attribute: name,
				Kind:      ViolationOutOfRange,
				Message:   "numeric attributes must be finite",
			})
			break
		}
		violations = append(violations, checkRange(name, decl.ValidRange, f)...)
	}

	return violations
}

func checkRange(name string, r *Range, v float64) []Violation {
	if r == nil {
		return nil
	}
	if r.Min != nil && v < *r.Min {
		return []Violation{{
			Attribute: name,
			Kind:      ViolationOutOfRange,
			Message:   fmt.Sprintf("value %v is below minimum %v", v, *r.Min),
		}}
	}
	if r.Max != nil && v > *r.Max {
		return []Violation{{
			Attribute: name,
			Kind:      ViolationOutOfRange,
			Message:   fmt.Sprintf("value %v is above maximum %v", v, *r.Max),
		}}
	}
	return nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
