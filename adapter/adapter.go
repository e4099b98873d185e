// Package adapter defines the backend-adapter contract: pure attribute
// renaming plus endpoint configuration for a concrete trace destination.
//
// Adapters are boring on purpose. They may rename attribute keys and carry
// endpoint/auth/resource configuration, and nothing else: an adapter never
// changes a span's kind, never drops a span, never adds attributes that are
// not derivable from the input plus static configuration, and never alters
// span lifecycle timing. The pass-through OTLP adapter is the reference:
// any other adapter's output may differ from it only in the keys its mapping
// table explicitly lists.
package adapter

import (
	"fmt"
	"sort"
)

// Protocol selects the export transport for an adapter's endpoint.
type Protocol string

const (
	ProtocolGRPC   Protocol = "grpc"
	ProtocolHTTP   Protocol = "http"
	ProtocolStdout Protocol = "stdout" // local debug, no network endpoint
)

// Endpoint is the destination configuration an adapter hands to the exporter
// pipeline. Pure data; no business logic is permitted here.
type Endpoint struct {
	URL      string
	Protocol Protocol
	Headers  map[string]string
	Insecure bool
}

// Adapter maps contract attributes onto a backend's conventions.
type Adapter interface {
	// Name identifies the adapter ("otlp", "arize", "mlflow", "stdout").
	Name() string

	// Endpoint returns the destination configuration.
	Endpoint() Endpoint

	// MapAttributes renames attributes per the adapter's table, passing
	// through every key the table does not list. It must be pure: same
	// input, same output, no side effects.
	MapAttributes(attrs map[string]any) map[string]any

	// ResourceAttributes returns backend-specific resource metadata attached
	// to every span (e.g. a project name). May be empty.
	ResourceAttributes() map[string]string
}

// ErrMappingCollision reports two source keys mapping to the same destination
// key. Detected at configure time; a colliding adapter refuses to activate.
type ErrMappingCollision struct {
	Destination string
	Sources     []string
}

func (e *ErrMappingCollision) Error() string {
	return fmt.Sprintf("adapter: keys %v all map to %q", e.Sources, e.Destination)
}

// Mapping is a rename table from contract attribute keys to backend keys.
// Keys not present pass through unchanged.
type Mapping map[string]string

// Validate rejects tables where two source keys collide on one destination.
// A destination equal to an unmapped pass-through key is also a collision
// waiting to happen, but only table-internal collisions are checkable
// statically; those are the configuration errors this catches.
func (m Mapping) Validate() error {
	byDest := make(map[string][]string, len(m))
	for src, dst := range m {
		byDest[dst] = append(byDest[dst], src)
	}
	for dst, srcs := range byDest {
		if len(srcs) > 1 {
			sort.Strings(srcs)
			return &ErrMappingCollision{Destination: dst, Sources: srcs}
		}
	}
	return nil
}

// Apply renames attrs per the table. The input map is never mutated.
func (m Mapping) Apply(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for key, value := range attrs {
		if mapped, ok := m[key]; ok {
			key = mapped
		}
		out[key] = value
	}
	return out
}
