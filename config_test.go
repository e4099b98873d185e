package miru

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/miru/internal/encode"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"MIRU_ADAPTER", "OTEL_EXPORTER_OTLP_ENDPOINT", "MIRU_OTLP_PROTOCOL",
		"MIRU_OTLP_INSECURE", "OTEL_SERVICE_NAME", "MIRU_CAPTURE_IO",
		"MIRU_SANITIZE", "MIRU_STRICT", "MIRU_MESSAGE_LIMIT", "MIRU_TOOL_LIMIT",
	} {
		t.Setenv(key, "")
	}

	cfg := loadConfig()
	assert.Equal(t, "otlp", cfg.Adapter)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.False(t, cfg.Insecure)
	assert.Equal(t, "miru", cfg.ServiceName)
	assert.True(t, cfg.CaptureIO, "capture is on by default")
	assert.False(t, cfg.Sanitize, "sanitize is opt-in")
	assert.False(t, cfg.Strict, "validation is lenient by default")
	assert.Equal(t, encode.MaxMessageBytes, cfg.MessageLimit)
	assert.Equal(t, encode.MaxToolBytes, cfg.ToolLimit)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("MIRU_ADAPTER", "stdout")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "tempo:4317")
	t.Setenv("MIRU_OTLP_PROTOCOL", "http")
	t.Setenv("MIRU_OTLP_INSECURE", "true")
	t.Setenv("OTEL_SERVICE_NAME", "log-analyzer")
	t.Setenv("MIRU_ENVIRONMENT", "staging")
	t.Setenv("MIRU_CAPTURE_IO", "false")
	t.Setenv("MIRU_STRICT", "1")
	t.Setenv("MIRU_MESSAGE_LIMIT", "8192")

	cfg := loadConfig()
	assert.Equal(t, "stdout", cfg.Adapter)
	assert.Equal(t, "tempo:4317", cfg.Endpoint)
	assert.Equal(t, "http", cfg.Protocol)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, "log-analyzer", cfg.ServiceName)
	assert.Equal(t, "staging", cfg.Environment)
	assert.False(t, cfg.CaptureIO)
	assert.True(t, cfg.Strict)
	assert.Equal(t, 8192, cfg.MessageLimit)
}

func TestLoadConfig_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("MIRU_STRICT", "definitely")
	t.Setenv("MIRU_MESSAGE_LIMIT", "four-k")

	cfg := loadConfig()
	assert.False(t, cfg.Strict)
	assert.Equal(t, encode.MaxMessageBytes, cfg.MessageLimit)
}
