package driven

import "context"

// ChatMessage represents a single message in a completion prompt.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// CompleteOptions configures completion behaviour.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// CompletionService produces text completions for the chat orchestrator.
// Calls carry a bounded timeout; failures surface as
// domain.ErrCompletionUnavailable so conversation history is never
// corrupted by a half-finished turn.
//
// Implementations may include:
//   - Anthropic (Claude)
//   - OpenAI (GPT-4o family)
type CompletionService interface {
	// Complete produces a completion for the assembled prompt. The
	// returned text may contain inline [S<n>] reference markers which
	// the chat orchestrator maps back to source chunks.
	Complete(ctx context.Context, messages []ChatMessage, opts CompleteOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// OCRService recognises text in images of handwritten notes.
// Optional: when nil, the notes source kind is rejected at ingest time.
type OCRService interface {
	// Recognize extracts text from an image. When latex is set,
	// mathematical content is transcribed as LaTeX.
	Recognize(ctx context.Context, image []byte, mimeType string, latex bool) (string, error)
}
