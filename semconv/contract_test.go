package semconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/miru/semconv"
)

// minimalValid builds an attribute set containing exactly the declared
// required attributes for kind, with type-correct sample values.
func minimalValid(t *testing.T, kind semconv.SpanKind) map[string]any {
	t.Helper()
	spec, err := semconv.Spec(kind)
	require.NoError(t, err)

	attrs := make(map[string]any)
	for name, decl := range spec {
		if !decl.Required {
			continue
		}
		switch decl.Type {
		case semconv.TypeString:
			attrs[name] = "sample"
		case semconv.TypeJSONString:
			attrs[name] = `{"a":1}`
		case semconv.TypeInt:
			attrs[name] = 1
		case semconv.TypeFloat:
			attrs[name] = 0.5
		case semconv.TypeBool:
			attrs[name] = true
		}
	}
	return attrs
}

func TestValidate_RequiredAttributes(t *testing.T) {
	for _, kind := range semconv.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			attrs := minimalValid(t, kind)

			violations, err := semconv.Validate(kind, attrs, semconv.ValidateOptions{})
			require.NoError(t, err)
			assert.Empty(t, violations, "exactly the required attributes must validate clean")

			// Removing any single required attribute must report exactly that
			// attribute as missing.
			for name := range attrs {
				partial := make(map[string]any, len(attrs)-1)
				for k, v := range attrs {
					if k != name {
						partial[k] = v
					}
				}
				violations, err := semconv.Validate(kind, partial, semconv.ValidateOptions{})
				require.NoError(t, err)
				require.Len(t, violations, 1, "removing %s", name)
				assert.Equal(t, name, violations[0].Attribute)
				assert.Equal(t, semconv.ViolationMissing, violations[0].Kind)
			}
		})
	}
}

func TestSpec_UnknownKind(t *testing.T) {
	_, err := semconv.Spec(semconv.SpanKind("llm.bogus"))
	require.Error(t, err)

	var unknownErr *semconv.ErrUnknownSpanKind
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, semconv.SpanKind("llm.bogus"), unknownErr.Kind)

	_, err = semconv.Validate("nope", map[string]any{}, semconv.ValidateOptions{})
	require.Error(t, err)
}

func TestValidate_Types(t *testing.T) {
	base := minimalValid(t, semconv.SpanKindLLMCall)

	tests := []struct {
		name  string
		key   string
		value any
		want  semconv.ViolationKind
	}{
		{"string attr with int value", semconv.AttrProvider, 42, semconv.ViolationWrongType},
		{"int attr with string value", semconv.AttrMaxTokens, "many", semconv.ViolationWrongType},
		{"bool attr with string value", semconv.AttrStreaming, "yes", semconv.ViolationWrongType},
		{"json attr with invalid json", semconv.AttrInputMessages, "{not json", semconv.ViolationWrongType},
		{"float attr with bool value", semconv.AttrTemperature, true, semconv.ViolationWrongType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := map[string]any{tt.key: tt.value}
			for k, v := range base {
				attrs[k] = v
			}
			violations, err := semconv.Validate(semconv.SpanKindLLMCall, attrs, semconv.ValidateOptions{})
			require.NoError(t, err)
			require.Len(t, violations, 1)
			assert.Equal(t, tt.key, violations[0].Attribute)
			assert.Equal(t, tt.want, violations[0].Kind)
		})
	}
}

func TestValidate_Ranges(t *testing.T) {
	base := minimalValid(t, semconv.SpanKindLLMCall)

	tests := []struct {
		name  string
		key   string
		value any
		dirty bool
	}{
		{"temperature at lower bound", semconv.AttrTemperature, 0.0, false},
		{"temperature at upper bound", semconv.AttrTemperature, 2.0, false},
		{"temperature above range", semconv.AttrTemperature, 2.1, true},
		{"temperature below range", semconv.AttrTemperature, -0.1, true},
		{"top_p in range", semconv.AttrTopP, 0.9, false},
		{"top_p above range", semconv.AttrTopP, 1.5, true},
		{"frequency penalty below range", semconv.AttrFrequencyPenalty, -2.5, true},
		{"negative token count", semconv.AttrUsageTotalTokens, -1, true},
		{"zero max_tokens", semconv.AttrMaxTokens, 0, true},
		{"int accepted for float attr", semconv.AttrTemperature, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := map[string]any{tt.key: tt.value}
			for k, v := range base {
				attrs[k] = v
			}
			violations, err := semconv.Validate(semconv.SpanKindLLMCall, attrs, semconv.ValidateOptions{})
			require.NoError(t, err)
			if tt.dirty {
				require.Len(t, violations, 1)
				assert.Equal(t, semconv.ViolationOutOfRange, violations[0].Kind)
			} else {
				assert.Empty(t, violations)
			}
		})
	}
}

func TestValidate_UnknownKeys(t *testing.T) {
	attrs := minimalValid(t, semconv.SpanKindTool)
	attrs["llm.made_up"] = "x"

	violations, err := semconv.Validate(semconv.SpanKindTool, attrs, semconv.ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "llm.made_up", violations[0].Attribute)
	assert.Equal(t, semconv.ViolationUnknownKey, violations[0].Kind)
}

func TestValidate_ExtensionPrefix(t *testing.T) {
	attrs := minimalValid(t, semconv.SpanKindAgent)
	attrs["myapp.tenant"] = "acme"

	// Without the prefix allowed: violation.
	violations, err := semconv.Validate(semconv.SpanKindAgent, attrs, semconv.ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, violations, 1)

	// With it allowed: clean.
	violations, err = semconv.Validate(semconv.SpanKindAgent, attrs, semconv.ValidateOptions{
		AllowedPrefixes: []string{"myapp."},
	})
	require.NoError(t, err)
	assert.Empty(t, violations)

	// The reserved prefix can never be handed out as an extension.
	attrs = minimalValid(t, semconv.SpanKindAgent)
	attrs["llm.made_up"] = "x"
	violations, err = semconv.Validate(semconv.SpanKindAgent, attrs, semconv.ValidateOptions{
		AllowedPrefixes: []string{"llm."},
	})
	require.NoError(t, err)
	require.Len(t, violations, 1)
}

func TestValidate_NonFiniteFloat(t *testing.T) {
	attrs := minimalValid(t, semconv.SpanKindLLMCall)
	attrs[semconv.AttrTemperature] = math.NaN()

	violations, err := semconv.Validate(semconv.SpanKindLLMCall, attrs, semconv.ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, semconv.ViolationOutOfRange, violations[0].Kind)
}
