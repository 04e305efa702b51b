// Package llm provides the inference gateway: a client for an OpenAI-compatible
// chat completion backend.
package llm

import "context"

// Gateway defines the operations the proxy needs from the inference backend.
type Gateway interface {
	// CreateChatCompletion sends a context window and returns the backend reply.
	// Failures are classified as domain.ErrMisconfiguredEndpoint, domain.ErrUpstreamUnavailable
	// or *domain.UpstreamRejectedError.
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResult, error)

	// ListModels retrieves the list of available models.
	ListModels(ctx context.Context) ([]Model, error)
}

// Ensure Client implements Gateway interface.
var _ Gateway = (*Client)(nil)
