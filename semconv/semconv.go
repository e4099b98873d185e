// Package semconv defines the stable semantic contract for LLM observability:
// the closed set of span kinds, the attribute names each kind requires and
// permits, and the validation rules enforced at span close.
//
// All attribute names live under the reserved "llm." prefix, lower-case with
// dot-separated hierarchy (e.g. "llm.usage.prompt_tokens"). Complex values are
// encoded as JSON-formatted strings at the span boundary, never as native
// nested structures. This flat shape is a wire-level compatibility contract
// with downstream consumers and must not change between releases.
package semconv

// SpanKind is the closed enumeration of LLM operation categories.
// A span's kind is immutable once the span is created.
type SpanKind string

const (
	// SpanKindLLMCall is a single LLM API invocation (completion, chat, generation).
	SpanKindLLMCall SpanKind = "llm.call"

	// SpanKindAgent is an agent execution involving planning, reasoning, and
	// tool orchestration.
	SpanKindAgent SpanKind = "llm.agent"

	// SpanKindTool is a tool or function call made by an LLM or agent.
	SpanKindTool SpanKind = "llm.tool"

	// SpanKindRetriever is a RAG retrieval operation (vector, keyword, hybrid).
	SpanKindRetriever SpanKind = "llm.retriever"

	// SpanKindEmbedding is embedding generation (vectorization of text).
	SpanKindEmbedding SpanKind = "llm.embedding"

	// SpanKindWorkflow is a multi-step LLM workflow or chain.
	SpanKindWorkflow SpanKind = "llm.workflow"

	// SpanKindPromptRegistry is prompt template rendering from a versioned registry.
	SpanKindPromptRegistry SpanKind = "llm.prompt_registry"
)

// ReservedPrefix is the attribute namespace owned by the contract. Attribute
// keys under this prefix that are not declared in a kind's spec are contract
// violations; caller extensions must use their own prefix instead.
const ReservedPrefix = "llm."

// Common attributes (all span kinds).
const (
	// AttrOperationType is the span kind identifier. Required on every span.
	AttrOperationType = "llm.operation.type"

	// AttrOperationName is the user-provided operation name. Required on every span.
	AttrOperationName = "llm.operation.name"

	// AttrSessionID is an optional session or conversation ID.
	AttrSessionID = "llm.session.id"
)

// LLM call attributes.
const (
	AttrProvider         = "llm.provider"           // e.g. "openai", "anthropic", "llama-cpp"
	AttrModel            = "llm.model"              // e.g. "gpt-4o", "claude-3-opus"
	AttrTemperature      = "llm.temperature"        // sampling temperature, 0.0–2.0
	AttrMaxTokens        = "llm.max_tokens"         // maximum completion tokens
	AttrTopP             = "llm.top_p"              // nucleus sampling, 0.0–1.0
	AttrTopK             = "llm.top_k"              // top-K sampling
	AttrFrequencyPenalty = "llm.frequency_penalty"  // -2.0 to 2.0
	AttrPresencePenalty  = "llm.presence_penalty"   // -2.0 to 2.0
	AttrStreaming        = "llm.streaming"          // whether streaming is enabled
	AttrStreamingPartial = "llm.streaming.partial"  // output captured from an abandoned stream
	AttrInputMessages    = "llm.input.messages"     // input messages as JSON string
	AttrOutputMessage    = "llm.output.message"     // output message as JSON string
	AttrInputValue       = "llm.input.value"        // captured call input as JSON string
	AttrOutputValue      = "llm.output.value"       // captured call output as JSON string
)

// Token usage attributes. Omitted entirely when usage is unknown, never
// populated with zero as a placeholder.
const (
	AttrUsagePromptTokens     = "llm.usage.prompt_tokens"
	AttrUsageCompletionTokens = "llm.usage.completion_tokens"
	AttrUsageTotalTokens      = "llm.usage.total_tokens"
)

// Agent attributes.
const (
	AttrAgentType       = "llm.agent.type"       // e.g. "react", "plan-execute"
	AttrAgentIterations = "llm.agent.iterations" // number of reasoning iterations
	AttrAgentTools      = "llm.agent.tools"      // available tools as JSON array string
)

// Tool attributes.
const (
	AttrToolName   = "llm.tool.name"
	AttrToolInput  = "llm.tool.input"  // JSON string, smaller size bound than messages
	AttrToolOutput = "llm.tool.output" // JSON string, smaller size bound than messages
)

// Retriever attributes.
const (
	AttrRetrieverType         = "llm.retriever.type" // "vector", "keyword", "hybrid"
	AttrRetrieverQuery        = "llm.retriever.query"
	AttrRetrieverTopK         = "llm.retriever.top_k"
	AttrRetrieverResultsCount = "llm.retriever.results_count"
	AttrRetrieverSource       = "llm.retriever.source" // e.g. "pinecone", "loki"
)

// Embedding attributes.
const (
	AttrEmbeddingInputCount = "llm.embedding.input_count"
	AttrEmbeddingDimensions = "llm.embedding.dimensions"
)

// Workflow attributes.
const (
	AttrWorkflowSteps       = "llm.workflow.steps" // JSON array string
	AttrWorkflowCurrentStep = "llm.workflow.current_step"
)

// Prompt registry attributes. Hashes are the first 8 hex characters of a
// SHA-256 digest, used to detect template drift, not for security.
const (
	AttrPromptID            = "llm.prompt.id"
	AttrPromptVersion       = "llm.prompt.version"
	AttrPromptTemplateHash  = "llm.prompt.template_hash"
	AttrPromptVariablesHash = "llm.prompt.variables_hash"
	AttrPromptRenderedHash  = "llm.prompt.rendered_hash"
)

// Error attributes, set when the wrapped operation fails.
const (
	AttrErrorType    = "llm.error.type"    // "rate_limit", "timeout", "invalid_input", "auth", "cancelled", "unknown"
	AttrErrorMessage = "llm.error.message"
	AttrErrorCode    = "llm.error.code" // provider-specific error code
)

// AttrContractViolations marks a span exported in lenient mode despite failing
// contract validation. Holds the violation list as a JSON array string.
const AttrContractViolations = "llm.contract.violations"

// Kinds returns every span kind in the closed enumeration.
func Kinds() []SpanKind {
	return []SpanKind{
		SpanKindLLMCall,
		SpanKindAgent,
		SpanKindTool,
		SpanKindRetriever,
		SpanKindEmbedding,
		SpanKindWorkflow,
		SpanKindPromptRegistry,
	}
}
