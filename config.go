package miru

import (
	"os"
	"strconv"

	"github.com/ashita-ai/miru/internal/encode"
)

// Config holds the SDK configuration resolved from environment variables.
// Options passed to Configure override these values.
type Config struct {
	// Adapter selection; only adapters that need no code-level configuration
	// can be chosen by env ("otlp" or "stdout"). Arize/MLflow need constructor
	// arguments and are selected via WithAdapter.
	Adapter string

	// OTLP endpoint and transport for the env-selected otlp adapter.
	Endpoint string
	Protocol string // "grpc" or "http"
	Insecure bool

	// Service identity attached to every span.
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Engine behavior.
	CaptureIO bool // capture wrapped call input/output (type-filtered)
	Sanitize  bool // apply PII redaction to captured content
	Strict    bool // contract violations block export instead of being marked

	// Capture size bounds (bytes of serialized content).
	MessageLimit int
	ToolLimit    int
}

// loadConfig reads configuration from environment variables with the
// documented defaults: capture on, sanitize off, lenient validation.
func loadConfig() Config {
	return Config{
		Adapter:        envStr("MIRU_ADAPTER", "otlp"),
		Endpoint:       envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Protocol:       envStr("MIRU_OTLP_PROTOCOL", "grpc"),
		Insecure:       envBool("MIRU_OTLP_INSECURE", false),
		ServiceName:    envStr("OTEL_SERVICE_NAME", "miru"),
		ServiceVersion: envStr("MIRU_SERVICE_VERSION", ""),
		Environment:    envStr("MIRU_ENVIRONMENT", ""),
		CaptureIO:      envBool("MIRU_CAPTURE_IO", true),
		Sanitize:       envBool("MIRU_SANITIZE", false),
		Strict:         envBool("MIRU_STRICT", false),
		MessageLimit:   envInt("MIRU_MESSAGE_LIMIT", encode.MaxMessageBytes),
		ToolLimit:      envInt("MIRU_TOOL_LIMIT", encode.MaxToolBytes),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
