package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/miru/internal/extract"
)

type completionUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type completionResponse struct {
	Content string
	Usage   completionUsage
}

type metadataResponse struct {
	Text     string
	Metadata struct {
		Usage struct {
			InputTokens  int
			OutputTokens int
		}
	}
}

func TestFromResponse_UsageStruct(t *testing.T) {
	resp := completionResponse{
		Content: "ok",
		Usage:   completionUsage{PromptTokens: 150, CompletionTokens: 75, TotalTokens: 225},
	}

	u, ok := extract.FromResponse(resp)
	require.True(t, ok)
	assert.Equal(t, int64(150), u.Prompt)
	assert.Equal(t, int64(75), u.Completion)
	assert.Equal(t, int64(225), u.Total)
	assert.True(t, u.HasPrompt && u.HasCompletion && u.HasTotal)

	// Pointer to the response works identically.
	u2, ok := extract.FromResponse(&resp)
	require.True(t, ok)
	assert.Equal(t, u, u2)
}

func TestFromResponse_UsageMap(t *testing.T) {
	// JSON-decoded responses carry float64 counts.
	resp := map[string]any{
		"choices": []any{},
		"usage": map[string]any{
			"prompt_tokens":     float64(12),
			"completion_tokens": float64(8),
			"total_tokens":      float64(20),
		},
	}

	u, ok := extract.FromResponse(resp)
	require.True(t, ok)
	assert.Equal(t, int64(12), u.Prompt)
	assert.Equal(t, int64(20), u.Total)
}

func TestFromResponse_MetadataShape(t *testing.T) {
	var resp metadataResponse
	resp.Metadata.Usage.InputTokens = 40
	resp.Metadata.Usage.OutputTokens = 10

	u, ok := extract.FromResponse(resp)
	require.True(t, ok)
	assert.Equal(t, int64(40), u.Prompt)
	assert.Equal(t, int64(10), u.Completion)
	// Total derived from input+output when the shape omits it.
	assert.True(t, u.HasTotal)
	assert.Equal(t, int64(50), u.Total)
}

func TestFromResponse_MetadataMap(t *testing.T) {
	resp := map[string]any{
		"metadata": map[string]any{
			"usage": map[string]any{"input_tokens": 5, "output_tokens": 7},
		},
	}

	u, ok := extract.FromResponse(resp)
	require.True(t, ok)
	assert.Equal(t, int64(12), u.Total)
}

func TestFromResponse_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		resp any
	}{
		{"nil", nil},
		{"plain string", "just text"},
		{"struct without usage", struct{ Content string }{"x"}},
		{"usage present but empty", map[string]any{"usage": map[string]any{}}},
		{"non-integral count", map[string]any{"usage": map[string]any{"prompt_tokens": 1.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := extract.FromResponse(tt.resp)
			assert.False(t, ok, "usage must be omitted, never defaulted")
		})
	}
}

func TestFromResponse_MatcherOrder(t *testing.T) {
	// When both shapes are present the usage field wins: matchers run in order.
	resp := map[string]any{
		"usage":    map[string]any{"prompt_tokens": 1, "completion_tokens": 2},
		"metadata": map[string]any{"usage": map[string]any{"input_tokens": 100, "output_tokens": 200}},
	}

	u, ok := extract.FromResponse(resp)
	require.True(t, ok)
	assert.Equal(t, int64(1), u.Prompt)
	assert.Equal(t, int64(3), u.Total)
}
