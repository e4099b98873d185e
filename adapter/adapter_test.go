package adapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/miru/adapter"
	"github.com/ashita-ai/miru/semconv"
)

func sampleAttrs() map[string]any {
	return map[string]any{
		semconv.AttrOperationType:         string(semconv.SpanKindLLMCall),
		semconv.AttrOperationName:         "summarize",
		semconv.AttrModel:                 "gpt-4o",
		semconv.AttrProvider:              "openai",
		semconv.AttrTemperature:           0.2,
		semconv.AttrUsagePromptTokens:     int64(150),
		semconv.AttrUsageCompletionTokens: int64(75),
		semconv.AttrUsageTotalTokens:      int64(225),
	}
}

func TestOTLP_Identity(t *testing.T) {
	a := adapter.NewOTLP("tempo:4317")
	in := sampleAttrs()

	out := a.MapAttributes(in)
	assert.Equal(t, in, out, "pass-through output must be identical to input")

	// The input map itself is never mutated or aliased.
	out["extra"] = true
	_, ok := in["extra"]
	assert.False(t, ok)
}

func TestOTLP_Endpoint(t *testing.T) {
	a := adapter.NewOTLP("collector:4318",
		adapter.WithProtocol(adapter.ProtocolHTTP),
		adapter.WithInsecure(),
		adapter.WithHeaders(map[string]string{"x-tenant": "dev"}),
	)
	ep := a.Endpoint()
	assert.Equal(t, "collector:4318", ep.URL)
	assert.Equal(t, adapter.ProtocolHTTP, ep.Protocol)
	assert.True(t, ep.Insecure)
	assert.Equal(t, "dev", ep.Headers["x-tenant"])
	assert.Empty(t, a.ResourceAttributes())
}

func TestArize_Mapping(t *testing.T) {
	a, err := adapter.NewArize("phoenix.arize.com:4317",
		adapter.WithAPIKey("secret"),
		adapter.WithProject("log-analyzer"),
		adapter.WithSpace("production"),
	)
	require.NoError(t, err)

	out := a.MapAttributes(sampleAttrs())

	// Renamed keys carry the original values.
	assert.Equal(t, "gpt-4o", out["llm.model_name"])
	assert.Equal(t, int64(150), out["llm.token_count.prompt"])
	assert.Equal(t, int64(225), out["llm.token_count.total"])
	_, ok := out[semconv.AttrModel]
	assert.False(t, ok, "mapped source keys must not survive")

	// Unmapped keys pass through unchanged; the adapter may differ from the
	// pass-through adapter only in keys its table lists.
	assert.Equal(t, "openai", out[semconv.AttrProvider])
	assert.Equal(t, "summarize", out[semconv.AttrOperationName])
	assert.Equal(t, 0.2, out[semconv.AttrTemperature])

	// No spans or attributes dropped.
	assert.Len(t, out, len(sampleAttrs()))

	res := a.ResourceAttributes()
	assert.Equal(t, "log-analyzer", res["arize.project_name"])
	assert.Equal(t, "production", res["arize.space"])
	assert.Equal(t, "Bearer secret", a.Endpoint().Headers["authorization"])
}

func TestMLflow_Mapping(t *testing.T) {
	a, err := adapter.NewMLflow("http://mlflow:5000", adapter.WithExperiment("log-analyzer-dev"))
	require.NoError(t, err)

	assert.Equal(t, "http://mlflow:5000/api/2.0/mlflow/traces", a.Endpoint().URL)
	assert.Equal(t, adapter.ProtocolHTTP, a.Endpoint().Protocol)

	out := a.MapAttributes(sampleAttrs())
	assert.Equal(t, "gpt-4o", out["gen_ai.request.model"])
	assert.Equal(t, "openai", out["gen_ai.system"])
	assert.Equal(t, 0.2, out["gen_ai.request.temperature"])
	assert.Equal(t, int64(75), out["gen_ai.usage.completion_tokens"])
	// total_tokens is not in the GenAI table: passes through.
	assert.Equal(t, int64(225), out[semconv.AttrUsageTotalTokens])

	assert.Equal(t, map[string]string{"mlflow.experiment_name": "log-analyzer-dev"}, a.ResourceAttributes())
}

func TestMapping_Validate(t *testing.T) {
	clean := adapter.Mapping{"a": "x", "b": "y"}
	require.NoError(t, clean.Validate())

	colliding := adapter.Mapping{"a": "x", "b": "x"}
	err := colliding.Validate()
	require.Error(t, err)

	var collision *adapter.ErrMappingCollision
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "x", collision.Destination)
	assert.Equal(t, []string{"a", "b"}, collision.Sources)
}

func TestMapping_ApplyPassThroughDefault(t *testing.T) {
	m := adapter.Mapping{"old": "new"}
	out := m.Apply(map[string]any{"old": 1, "keep": 2})
	assert.Equal(t, map[string]any{"new": 1, "keep": 2}, out)
}

func TestStdout(t *testing.T) {
	a := adapter.NewStdout()
	assert.Equal(t, adapter.ProtocolStdout, a.Endpoint().Protocol)
	in := sampleAttrs()
	assert.Equal(t, in, a.MapAttributes(in))
}
