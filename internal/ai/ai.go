// Package ai defines the gateway abstraction for AI chat model invocation.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider defines the interface for AI chat completion.
type Provider interface {
	// Complete generates an assistant reply for the given conversation.
	Complete(ctx context.Context, params CompletionParams) (*CompletionResult, error)
}

// Turn is a single message in the conversation history.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// CompletionParams contains parameters for a chat completion.
type CompletionParams struct {
	SystemPrompt string // Persona system prompt plus knowledge context
	History      []Turn // Conversation so far, oldest first, ending with the user's message
	MaxTokens    int    // Response token cap; provider default when zero
}

// CompletionResult contains the assistant's reply and usage information.
type CompletionResult struct {
	Content string
	Model   string
	Usage   UsageInfo
}

// UsageInfo tracks API usage for monitoring.
type UsageInfo struct {
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// ProviderConfig contains common configuration for AI providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIContentPolicy indicates the request violates content policy
	EAIContentPolicy = errors.New("request violates content policy")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
