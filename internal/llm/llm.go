// Package llm provides the completion service used by the specialist
// workers: a thin interface plus an Anthropic-backed implementation with
// optional AWS Bedrock routing.
package llm

import "context"

// Options controls a single completion call.
type Options struct {
	// SystemPrompt is the role prompt injected as the system message.
	SystemPrompt string
	// Temperature is the sampling temperature. Zero means the provider default.
	Temperature float64
	// MaxTokens caps the generated output. Zero means the package default.
	MaxTokens int64
}

// Result is the outcome of one completion call. Failures are carried in
// Error with Success false; Complete never returns a Go error.
type Result struct {
	Success    bool
	Text       string
	Error      string
	TokensUsed int64
	DurationMs int64
}

// Completer turns a prompt plus options into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) Result
}
