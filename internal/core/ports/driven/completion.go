package driven

import "context"

// ChatMessage is a single message in a completion request.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// CompletionOptions configures a completion request.
type CompletionOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// CompletionService produces text from a prompt. This is the external
// text-generation model; it blocks on network latency and callers must
// treat it as a cancellable, timeout-bounded operation.
//
// Implementations may include:
//   - Google Gemini (generateContent)
//   - OpenAI (chat completions)
type CompletionService interface {
	// Complete runs a chat completion over the given messages.
	Complete(ctx context.Context, messages []ChatMessage, opts CompletionOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
