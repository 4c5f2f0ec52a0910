// Package llm defines the Provider interface for text-generation backends.
//
// A provider wraps a remote or local language-model API (e.g., Groq via the
// OpenAI-compatible endpoint, OpenAI itself, or a local Ollama instance) and
// exposes a uniform single request/response interface for the extraction
// pipeline. There is no streaming surface: every extraction pass is one
// blocking prompt → text round trip, and the response is post-processed as a
// whole by the normalizer.
//
// Implementations must be safe for concurrent use. Each method should
// propagate context cancellation promptly.
package llm

import "context"

// Usage holds token accounting information returned by the backend.
// All counts are in the model's native token unit and may differ between
// providers for the same textual content.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages
	// and system prompt.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens. Some providers return
	// it directly rather than computing it from the parts.
	TotalTokens int
}

// Message represents a single message in a model conversation.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything the model needs to produce a response.
// Callers should treat a zero-value request as invalid; at minimum Messages
// must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation. The extraction pipeline always
	// sends exactly one "user" message carrying the content to analyze.
	Messages []Message

	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers without a dedicated system field should
	// prepend it as a "system"-role message.
	SystemPrompt string

	// Temperature controls output randomness in [0.0, 2.0]. Extraction runs
	// at low temperatures (0.1 by default) for repeatable structure.
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any text-generation backend.
//
// Implementations must be safe for concurrent use from multiple goroutines.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	//
	// Returns an error if the request fails (transport, rate limit, auth)
	// or if ctx is cancelled before the completion arrives. A non-nil error
	// always means no usable text was produced; malformed-but-present text
	// is returned as success and left to the normalizer.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
