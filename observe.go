package miru

import (
	"context"
	"fmt"

	"github.com/ashita-ai/miru/internal/encode"
	"github.com/ashita-ai/miru/semconv"
)

// SpanConfig is the per-call instrumentation configuration: span kind, static
// attributes, and capture flags, resolved when the wrapped call runs. The
// concrete types form a closed set matching the span kind enumeration, plus
// Custom for the manual escape hatch.
type SpanConfig interface {
	spanKind() semconv.SpanKind
	spanName() string
	seed(*spanSeed)
}

// spanSeed collects the creation-time attribute set and capture behavior a
// config contributes to its span.
type spanSeed struct {
	attrs     map[string]any
	captureIO *bool
	sanitize  *bool
	inAttr    string
	outAttr   string
	toolSized bool // tool-class fields use the smaller size bound
}

func (sd *spanSeed) limit(sdk *sdkState) int {
	if sd.toolSized {
		return sdk.toolLimit
	}
	return sdk.messageLimit
}

func (sd *spanSeed) set(key string, v any) {
	sd.attrs[key] = v
}

func (sd *spanSeed) setNonEmpty(key, v string) {
	if v != "" {
		sd.attrs[key] = v
	}
}

// LLMCall instruments a single LLM API invocation.
type LLMCall struct {
	Name     string // operation name (required)
	Model    string // model identifier (required by the contract)
	Provider string // e.g. "openai", "anthropic", "llama-cpp"

	// Inference parameters. Pointer fields distinguish "unset" from a
	// meaningful zero (temperature 0 is a real setting).
	Temperature      *float64
	MaxTokens        int
	TopP             *float64
	TopK             int
	FrequencyPenalty *float64
	PresencePenalty  *float64
	Streaming        bool

	SessionID string
	CaptureIO *bool // overrides the global capture flag for this call
	Sanitize  *bool // overrides the global sanitize flag for this call
}

func (c LLMCall) spanKind() semconv.SpanKind { return semconv.SpanKindLLMCall }
func (c LLMCall) spanName() string           { return c.Name }

func (c LLMCall) seed(sd *spanSeed) {
	sd.inAttr = semconv.AttrInputMessages
	sd.outAttr = semconv.AttrOutputMessage
	sd.captureIO = c.CaptureIO
	sd.sanitize = c.Sanitize
	sd.setNonEmpty(semconv.AttrModel, c.Model)
	sd.setNonEmpty(semconv.AttrProvider, c.Provider)
	sd.setNonEmpty(semconv.AttrSessionID, c.SessionID)
	if c.Temperature != nil {
		sd.set(semconv.AttrTemperature, *c.Temperature)
	}
	if c.MaxTokens > 0 {
		sd.set(semconv.AttrMaxTokens, c.MaxTokens)
	}
	if c.TopP != nil {
		sd.set(semconv.AttrTopP, *c.TopP)
	}
	if c.TopK > 0 {
		sd.set(semconv.AttrTopK, c.TopK)
	}
	if c.FrequencyPenalty != nil {
		sd.set(semconv.AttrFrequencyPenalty, *c.FrequencyPenalty)
	}
	if c.PresencePenalty != nil {
		sd.set(semconv.AttrPresencePenalty, *c.PresencePenalty)
	}
	if c.Streaming {
		sd.set(semconv.AttrStreaming, true)
	}
}

// Agent instruments an agent execution: planning, reasoning, and tool
// orchestration.
type Agent struct {
	Name      string
	Type      string   // e.g. "react", "plan-execute", "conversational"
	Tools     []string // available tool names
	SessionID string
	CaptureIO *bool
	Sanitize  *bool
}

func (c Agent) spanKind() semconv.SpanKind { return semconv.SpanKindAgent }
func (c Agent) spanName() string           { return c.Name }

func (c Agent) seed(sd *spanSeed) {
	sd.inAttr = semconv.AttrInputValue
	sd.outAttr = semconv.AttrOutputValue
	sd.captureIO = c.CaptureIO
	sd.sanitize = c.Sanitize
	sd.setNonEmpty(semconv.AttrAgentType, c.Type)
	sd.setNonEmpty(semconv.AttrSessionID, c.SessionID)
	if len(c.Tools) > 0 {
		if s, _, err := encode.JSON(c.Tools, encode.MaxToolBytes); err == nil {
			sd.set(semconv.AttrAgentTools, s)
		}
	}
}

// Tool instruments a tool or function call made by an LLM or agent.
type Tool struct {
	Name      string
	SessionID string
	CaptureIO *bool
	Sanitize  *bool
}

func (c Tool) spanKind() semconv.SpanKind { return semconv.SpanKindTool }
func (c Tool) spanName() string           { return c.Name }

func (c Tool) seed(sd *spanSeed) {
	sd.inAttr = semconv.AttrToolInput
	sd.outAttr = semconv.AttrToolOutput
	sd.toolSized = true
	sd.captureIO = c.CaptureIO
	sd.sanitize = c.Sanitize
	sd.set(semconv.AttrToolName, c.Name)
	sd.setNonEmpty(semconv.AttrSessionID, c.SessionID)
}

// Retriever instruments a RAG retrieval operation.
type Retriever struct {
	Name      string
	Source    string // data source identifier, e.g. "pinecone", "loki" (required)
	Type      string // "vector", "keyword", "hybrid"
	TopK      int
	SessionID string
	CaptureIO *bool
	Sanitize  *bool
}

func (c Retriever) spanKind() semconv.SpanKind { return semconv.SpanKindRetriever }
func (c Retriever) spanName() string           { return c.Name }

func (c Retriever) seed(sd *spanSeed) {
	sd.inAttr = semconv.AttrInputValue
	sd.outAttr = semconv.AttrOutputValue
	sd.captureIO = c.CaptureIO
	sd.sanitize = c.Sanitize
	sd.setNonEmpty(semconv.AttrRetrieverSource, c.Source)
	sd.setNonEmpty(semconv.AttrRetrieverType, c.Type)
	sd.setNonEmpty(semconv.AttrSessionID, c.SessionID)
	if c.TopK > 0 {
		sd.set(semconv.AttrRetrieverTopK, c.TopK)
	}
}

// Embedding instruments embedding generation.
type Embedding struct {
	Name       string
	Model      string
	Provider   string
	InputCount int
	Dimensions int
	SessionID  string
	CaptureIO  *bool
	Sanitize   *bool
}

func (c Embedding) spanKind() semconv.SpanKind { return semconv.SpanKindEmbedding }
func (c Embedding) spanName() string           { return c.Name }

func (c Embedding) seed(sd *spanSeed) {
	sd.inAttr = semconv.AttrInputValue
	sd.outAttr = "" // vectors are never captured
	sd.captureIO = c.CaptureIO
	sd.sanitize = c.Sanitize
	sd.setNonEmpty(semconv.AttrModel, c.Model)
	sd.setNonEmpty(semconv.AttrProvider, c.Provider)
	sd.setNonEmpty(semconv.AttrSessionID, c.SessionID)
	if c.InputCount > 0 {
		sd.set(semconv.AttrEmbeddingInputCount, c.InputCount)
	}
	if c.Dimensions > 0 {
		sd.set(semconv.AttrEmbeddingDimensions, c.Dimensions)
	}
}

// Workflow instruments a multi-step LLM workflow or chain.
type Workflow struct {
	Name      string
	Steps     []string
	SessionID string
	CaptureIO *bool
	Sanitize  *bool
}

func (c Workflow) spanKind() semconv.SpanKind { return semconv.SpanKindWorkflow }
func (c Workflow) spanName() string           { return c.Name }

func (c Workflow) seed(sd *spanSeed) {
	sd.inAttr = semconv.AttrInputValue
	sd.outAttr = semconv.AttrOutputValue
	sd.captureIO = c.CaptureIO
	sd.sanitize = c.Sanitize
	sd.setNonEmpty(semconv.AttrSessionID, c.SessionID)
	if len(c.Steps) > 0 {
		if s, _, err := encode.JSON(c.Steps, encode.MaxMessageBytes); err == nil {
			sd.set(semconv.AttrWorkflowSteps, s)
		}
	}
}

// PromptRender instruments prompt template rendering from a versioned
// registry. Template and variables are fingerprinted, never captured: the
// span records 8-character content hashes to detect drift.
type PromptRender struct {
	Name      string
	PromptID  string // template identifier (required)
	Version   string
	Template  string // template content; hashed, not recorded
	Variables any    // input variables; hashed, not recorded
	SessionID string
}

func (c PromptRender) spanKind() semconv.SpanKind { return semconv.SpanKindPromptRegistry }
func (c PromptRender) spanName() string           { return c.Name }

func (c PromptRender) seed(sd *spanSeed) {
	off := false
	sd.captureIO = &off
	sd.setNonEmpty(semconv.AttrPromptID, c.PromptID)
	sd.setNonEmpty(semconv.AttrPromptVersion, c.Version)
	sd.setNonEmpty(semconv.AttrSessionID, c.SessionID)
	if c.Template != "" {
		sd.set(semconv.AttrPromptTemplateHash, encode.Hash8(c.Template))
	}
	if c.Variables != nil {
		if s, _, err := encode.JSON(c.Variables, encode.MaxMessageBytes); err == nil {
			sd.set(semconv.AttrPromptVariablesHash, encode.Hash8(s))
		}
	}
}

// Custom is the escape-hatch config for StartSpan: an arbitrary kind plus
// pre-built attributes. A kind outside the closed enumeration fails at
// StartSpan with UnknownSpanKind; no span is created.
type Custom struct {
	Kind       semconv.SpanKind
	Name       string
	Attributes map[string]any
	CaptureIO  *bool
	Sanitize   *bool
}

func (c Custom) spanKind() semconv.SpanKind { return c.Kind }
func (c Custom) spanName() string           { return c.Name }

func (c Custom) seed(sd *spanSeed) {
	sd.inAttr = semconv.AttrInputValue
	sd.outAttr = semconv.AttrOutputValue
	sd.captureIO = c.CaptureIO
	sd.sanitize = c.Sanitize
	for k, v := range c.Attributes {
		sd.set(k, v)
	}
}

// wrap is the single lifecycle driver behind every Wrap variant: open span,
// capture input, invoke, finalize (usage extraction + output capture) or
// record the error, close. The wrapped function's error and panics propagate
// unchanged: the observability layer is transparent to failure.
func wrap[In, Out any](cfg SpanConfig, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		ctx, s, err := startSpan(ctx, cfg)
		if err != nil {
			var zero Out
			return zero, err
		}
		defer func() {
			if r := recover(); r != nil {
				s.close(fmt.Errorf("panic: %v", r))
				panic(r)
			}
		}()

		s.captureInput(in)
		out, err := fn(ctx, in)
		if err != nil {
			s.close(err)
			return out, err
		}
		s.finishOK(out)
		return out, nil
	}
}

// WrapLLM instruments an LLM call. On success the engine extracts token
// usage from the return value (manual SetUsage via Observe wins when both
// exist) and captures the output message, subject to capture configuration.
func WrapLLM[In, Out any](cfg LLMCall, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return wrap[In, Out](cfg, fn)
}

// WrapAgent instruments an agent execution.
func WrapAgent[In, Out any](cfg Agent, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return wrap[In, Out](cfg, fn)
}

// WrapTool instruments a tool call. Tool input/output use the smaller
// tool-class size bound.
func WrapTool[In, Out any](cfg Tool, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return wrap[In, Out](cfg, fn)
}

// WrapRetriever instruments a retrieval operation.
func WrapRetriever[In, Out any](cfg Retriever, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return wrap[In, Out](cfg, fn)
}

// WrapEmbedding instruments embedding generation. Output vectors are never
// captured.
func WrapEmbedding[In, Out any](cfg Embedding, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return wrap[In, Out](cfg, fn)
}

// WrapWorkflow instruments a multi-step workflow.
func WrapWorkflow[In, Out any](cfg Workflow, fn func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return wrap[In, Out](cfg, fn)
}

// WrapPromptRender instruments prompt rendering. The rendered output is
// fingerprinted into llm.prompt.rendered_hash; content itself is not recorded.
func WrapPromptRender[In any](cfg PromptRender, fn func(context.Context, In) (string, error)) func(context.Context, In) (string, error) {
	return func(ctx context.Context, in In) (string, error) {
		ctx, s, err := startSpan(ctx, cfg)
		if err != nil {
			return "", err
		}
		defer func() {
			if r := recover(); r != nil {
				s.close(fmt.Errorf("panic: %v", r))
				panic(r)
			}
		}()

		rendered, err := fn(ctx, in)
		if err != nil {
			s.close(err)
			return rendered, err
		}
		s.setAttr(semconv.AttrPromptRenderedHash, encode.Hash8(rendered), false)
		s.close(nil)
		return rendered, nil
	}
}
