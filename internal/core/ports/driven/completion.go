package driven

import "context"

// CompletionService produces text completions for assembled prompts.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini and friends)
//   - Ollama (local models)
type CompletionService interface {
	// Complete generates text for the prompt. Temperature and token
	// limits are explicit options, never hidden defaults. A refusal or
	// safety block surfaces domain.ErrGenerationRejected; transport
	// failures wrap domain.ErrBackendUnavailable.
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)

	// ModelName returns the name of the completion model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompleteOptions configures a completion call.
type CompleteOptions struct {
	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// MaxTokens bounds the generated output length.
	MaxTokens int

	// Stop are sequences that end generation when encountered.
	Stop []string
}
