package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ashita-ai/miru/adapter"
)

const violationKey = "llm.contract.violations"

func stub(name string, attrs ...attribute.KeyValue) sdktrace.ReadOnlySpan {
	return tracetest.SpanStub{Name: name, Attributes: attrs}.Snapshot()
}

func TestFilterExporter_DropsMarkedSpans(t *testing.T) {
	sink := tracetest.NewInMemoryExporter()
	exp := &filterExporter{next: sink, dropKey: attribute.Key(violationKey)}

	err := exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{
		stub("clean", attribute.String("llm.model", "gpt-4o")),
		stub("dirty", attribute.String(violationKey, `[{"attribute":"llm.model"}]`)),
		stub("also-clean"),
	})
	require.NoError(t, err)

	got := sink.GetSpans()
	require.Len(t, got, 2)
	assert.Equal(t, "clean", got[0].Name)
	assert.Equal(t, "also-clean", got[1].Name)
}

func TestFilterExporter_AllDropped(t *testing.T) {
	sink := tracetest.NewInMemoryExporter()
	exp := &filterExporter{next: sink, dropKey: attribute.Key(violationKey)}

	err := exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{
		stub("dirty", attribute.String(violationKey, "[]")),
	})
	require.NoError(t, err)
	assert.Empty(t, sink.GetSpans(), "a fully-filtered batch never reaches the destination")
}

func TestFilterExporter_Shutdown(t *testing.T) {
	sink := tracetest.NewInMemoryExporter()
	exp := &filterExporter{next: sink, dropKey: attribute.Key(violationKey)}
	assert.NoError(t, exp.Shutdown(context.Background()))
}

func TestInit_StdoutPipeline(t *testing.T) {
	tp, shutdown, err := Init(context.Background(),
		adapter.Endpoint{Protocol: adapter.ProtocolStdout},
		Identity{ServiceName: "miru-test", ServiceVersion: "0.0.1", Environment: "test"},
		map[string]string{"arize.space_id": "s1"},
		false, violationKey,
	)
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_UnsupportedProtocol(t *testing.T) {
	_, _, err := Init(context.Background(),
		adapter.Endpoint{Protocol: "carrier-pigeon"},
		Identity{ServiceName: "miru-test"}, nil, false, violationKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported protocol")
}
