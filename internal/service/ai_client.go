package service

import (
	"context"
	"errors"
)

// Sentinel errors for AI engine calls. All of them are recovered by the pipeline.
var (
	ErrAIDisabled    = errors.New("AI engine is disabled")
	ErrAIRateLimited = errors.New("AI engine call rate limited")
	ErrAICircuitOpen = errors.New("AI engine circuit open")
	ErrEmptyResponse = errors.New("AI engine returned no content")
)

// GenerateOptions are the sampling parameters of a single generation call
type GenerateOptions struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// AIEngine is the natural-language analysis engine. Implementations must be safe
// for concurrent independent calls.
type AIEngine interface {
	// Generate sends one prompt and returns the raw response text (synchronous, no streaming)
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// IsEnabled returns whether the engine is configured and reachable
	IsEnabled() bool
}

// engineEnabled is the nil-safe flag check every call site performs before calling out
func engineEnabled(e AIEngine) bool {
	return e != nil && e.IsEnabled()
}

// Ensure clients implement AIEngine
var (
	_ AIEngine = (*OllamaClient)(nil)
	_ AIEngine = (*OpenAIClient)(nil)
	_ AIEngine = (*GuardedEngine)(nil)
)
