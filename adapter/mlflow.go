package adapter

import "github.com/ashita-ai/miru/semconv"

// mlflowMapping translates the semantic contract to the OpenTelemetry GenAI
// conventions MLflow tracing expects. Keys not listed pass through.
var mlflowMapping = Mapping{
	semconv.AttrModel:                 "gen_ai.request.model",
	semconv.AttrProvider:              "gen_ai.system",
	semconv.AttrTemperature:           "gen_ai.request.temperature",
	semconv.AttrMaxTokens:             "gen_ai.request.max_tokens",
	semconv.AttrTopP:                  "gen_ai.request.top_p",
	semconv.AttrUsagePromptTokens:     "gen_ai.usage.prompt_tokens",
	semconv.AttrUsageCompletionTokens: "gen_ai.usage.completion_tokens",
}

// MLflow exports to an MLflow tracking server with GenAI attribute names.
type MLflow struct {
	endpoint   Endpoint
	experiment string
	mapping    Mapping
}

// MLflowOption configures an MLflow adapter.
type MLflowOption func(*MLflow)

// WithExperiment sets the MLflow experiment name resource attribute.
func WithExperiment(name string) MLflowOption {
	return func(a *MLflow) { a.experiment = name }
}

// NewMLflow returns an MLflow adapter for the given tracking server, e.g.
// "http://mlflow:5000". MLflow receives traces over HTTP at a fixed path
// under the tracking URI.
func NewMLflow(trackingURI string, opts ...MLflowOption) (*MLflow, error) {
	a := &MLflow{
		endpoint: Endpoint{
			URL:      trackingURI + "/api/2.0/mlflow/traces",
			Protocol: ProtocolHTTP,
		},
		mapping: mlflowMapping,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.mapping.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *MLflow) Name() string       { return "mlflow" }
func (a *MLflow) Endpoint() Endpoint { return a.endpoint }

func (a *MLflow) MapAttributes(attrs map[string]any) map[string]any {
	return a.mapping.Apply(attrs)
}

func (a *MLflow) ResourceAttributes() map[string]string {
	if a.experiment == "" {
		return nil
	}
	return map[string]string{"mlflow.experiment_name": a.experiment}
}
