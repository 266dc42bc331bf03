// Package mock provides a canned AI provider for testing and development.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hollandv/quill/internal/ai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	CompleteResponse *ai.CompletionResult
	CompleteError    error

	// Call tracking for testing
	CompleteCalls int
	LastParams    ai.CompletionParams
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// Complete returns a canned echo reply, or the configured response/error.
func (p *Provider) Complete(ctx context.Context, params ai.CompletionParams) (*ai.CompletionResult, error) {
	p.CompleteCalls++
	p.LastParams = params

	if p.CompleteError != nil {
		return nil, p.CompleteError
	}
	if p.CompleteResponse != nil {
		return p.CompleteResponse, nil
	}

	last := ""
	if n := len(params.History); n > 0 {
		last = params.History[n-1].Content
	}

	p.logger.Debug("mock completion", "history_len", len(params.History))

	return &ai.CompletionResult{
		Content: fmt.Sprintf("You said: %q. This is a mock reply.", last),
		Model:   "mock",
		Usage: ai.UsageInfo{
			InputTokens:  len(last) / 4,
			OutputTokens: 16,
			Duration:     5 * time.Millisecond,
		},
	}, nil
}
