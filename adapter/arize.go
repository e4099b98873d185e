package adapter

import "github.com/ashita-ai/miru/semconv"

// arizeMapping translates the semantic contract to OpenInference conventions
// used by Arize Phoenix and the Arize platform. Keys not listed pass through.
var arizeMapping = Mapping{
	semconv.AttrModel:                 "llm.model_name",
	semconv.AttrInputMessages:         "llm.input_messages",
	semconv.AttrOutputMessage:         "llm.output_messages",
	semconv.AttrUsagePromptTokens:     "llm.token_count.prompt",
	semconv.AttrUsageCompletionTokens: "llm.token_count.completion",
	semconv.AttrUsageTotalTokens:      "llm.token_count.total",
	semconv.AttrToolName:              "tool.name",
	semconv.AttrToolInput:             "tool.parameters",
}

// Arize exports to Arize Phoenix with OpenInference attribute names.
type Arize struct {
	endpoint Endpoint
	project  string
	space    string
	mapping  Mapping
}

// ArizeOption configures an Arize adapter.
type ArizeOption func(*Arize)

// WithAPIKey sets the bearer token used by the Arize platform.
func WithAPIKey(key string) ArizeOption {
	return func(a *Arize) { a.endpoint.Headers = map[string]string{"authorization": "Bearer " + key} }
}

// WithProject sets the Arize project name resource attribute.
func WithProject(name string) ArizeOption {
	return func(a *Arize) { a.project = name }
}

// WithSpace sets the Arize space resource attribute.
func WithSpace(space string) ArizeOption {
	return func(a *Arize) { a.space = space }
}

// NewArize returns an Arize adapter targeting endpoint, e.g.
// "phoenix.arize.com:4317". The mapping table is validated here: a colliding
// table is a configuration error and the adapter refuses to activate.
func NewArize(endpoint string, opts ...ArizeOption) (*Arize, error) {
	a := &Arize{
		endpoint: Endpoint{URL: endpoint, Protocol: ProtocolGRPC},
		mapping:  arizeMapping,
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.mapping.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Arize) Name() string       { return "arize" }
func (a *Arize) Endpoint() Endpoint { return a.endpoint }

func (a *Arize) MapAttributes(attrs map[string]any) map[string]any {
	return a.mapping.Apply(attrs)
}

func (a *Arize) ResourceAttributes() map[string]string {
	attrs := map[string]string{}
	if a.project != "" {
		attrs["arize.project_name"] = a.project
	}
	if a.space != "" {
		attrs["arize.space"] = a.space
	}
	return attrs
}
