package adapter

// OTLP is the default pass-through adapter for any OTLP-compatible backend
// (Tempo, Jaeger, Honeycomb, ...). It performs no attribute mapping: the
// semantic contract is sent to the backend verbatim. Every other adapter is
// validated against this one's identity behavior.
type OTLP struct {
	endpoint Endpoint
}

// OTLPOption configures an OTLP adapter.
type OTLPOption func(*OTLP)

// WithProtocol selects grpc or http transport. Default is grpc.
func WithProtocol(p Protocol) OTLPOption {
	return func(a *OTLP) { a.endpoint.Protocol = p }
}

// WithHeaders sets request headers for authentication.
func WithHeaders(headers map[string]string) OTLPOption {
	return func(a *OTLP) { a.endpoint.Headers = headers }
}

// WithInsecure disables transport security (local collectors, dev clusters).
func WithInsecure() OTLPOption {
	return func(a *OTLP) { a.endpoint.Insecure = true }
}

// NewOTLP returns a pass-through adapter targeting endpoint,
// e.g. "tempo.logging.svc.cluster.local:4317".
func NewOTLP(endpoint string, opts ...OTLPOption) *OTLP {
	a := &OTLP{endpoint: Endpoint{URL: endpoint, Protocol: ProtocolGRPC}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *OTLP) Name() string       { return "otlp" }
func (a *OTLP) Endpoint() Endpoint { return a.endpoint }

// MapAttributes is the identity: output equals input.
func (a *OTLP) MapAttributes(attrs map[string]any) map[string]any {
	return Mapping(nil).Apply(attrs)
}

func (a *OTLP) ResourceAttributes() map[string]string { return nil }
