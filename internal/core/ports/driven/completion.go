package driven

import "context"

// CompletionService provides text generation for chunk refinement, passage
// classification and answer synthesis. This is an optional service: when
// nil or unreachable, the core degrades gracefully. Chunking falls back to
// the mechanical split, enrichment fields stay absent, and answers refuse.
//
// Implementations may include:
//   - OpenAI (chat completions API)
//   - Ollama (local models)
//   - Any OpenAI-compatible inference server
type CompletionService interface {
	// Complete produces a text completion for the prompt.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures a single completion request.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
