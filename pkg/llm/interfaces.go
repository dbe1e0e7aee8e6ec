// Package llm provides the model clients used for routing, planning and
// semantic summaries, plus JSON extraction over their output.
package llm

import "context"

// Client is the minimal surface the engine needs from a language model.
// Use it for dependency injection; tests substitute the Mock.
type Client interface {
	// Complete generates a single chat completion for the prompt.
	Complete(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// Model returns the configured model name.
	Model() string
}

// Compile-time checks that both providers satisfy the interface.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*Mock)(nil)
)
