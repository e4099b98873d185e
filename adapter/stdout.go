package adapter

// Stdout is a debug adapter that writes spans to standard output instead of a
// network backend. Pass-through mapping, no resource attributes. Useful for
// local development before a collector exists.
type Stdout struct{}

// NewStdout returns the stdout debug adapter.
func NewStdout() *Stdout { return &Stdout{} }

func (a *Stdout) Name() string       { return "stdout" }
func (a *Stdout) Endpoint() Endpoint { return Endpoint{Protocol: ProtocolStdout} }

func (a *Stdout) MapAttributes(attrs map[string]any) map[string]any {
	return Mapping(nil).Apply(attrs)
}

func (a *Stdout) ResourceAttributes() map[string]string { return nil }
