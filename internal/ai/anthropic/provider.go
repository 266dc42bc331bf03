// Package anthropic implements the ai.Provider interface over Anthropic's
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/hollandv/quill/internal/ai"
)

const (
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// DefaultModel is the default Claude model to use
	DefaultModel = "claude-3-5-sonnet-20241022"

	// DefaultMaxTokens caps the reply length when the caller doesn't set one
	DefaultMaxTokens = 1024
)

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider implements the ai.Provider interface using Anthropic's Claude API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Anthropic AI provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// apiRequest is the Anthropic Messages API request body
type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiResponse is the Anthropic Messages API response body
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete generates an assistant reply using the Messages API.
func (p *Provider) Complete(ctx context.Context, params ai.CompletionParams) (*ai.CompletionResult, error) {
	startTime := time.Now()

	if len(params.History) == 0 {
		return nil, ai.WrapError("complete", fmt.Errorf("history must not be empty"))
	}

	maxTokens := params.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	body := apiRequest{
		Model:     p.config.Model,
		MaxTokens: maxTokens,
		System:    params.SystemPrompt,
	}
	for _, turn := range params.History {
		body.Messages = append(body.Messages, apiMessage{Role: turn.Role, Content: turn.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, ai.WrapError("marshal request", err)
	}

	resp, err := p.executeWithRetry(ctx, payload)
	if err != nil {
		return nil, ai.WrapError("execute request", err)
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, ai.WrapError("parse response", fmt.Errorf("response contained no text content"))
	}

	return &ai.CompletionResult{
		Content: text,
		Model:   resp.Model,
		Usage: ai.UsageInfo{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			Duration:     time.Since(startTime),
		},
	}, nil
}

// executeWithRetry posts the payload with exponential backoff on transient
// failures (429, 5xx, timeouts).
func (p *Provider) executeWithRetry(ctx context.Context, payload []byte) (*apiResponse, error) {
	backoff := retry.NewExponential(p.config.ProviderConfig.RetryBaseDelay)
	backoff = retry.WithMaxRetries(uint64(p.config.ProviderConfig.MaxRetries), backoff)

	var result *apiResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := p.doRequest(ctx, payload)
		if err != nil {
			if ai.IsRetryable(err) {
				p.logger.Warn("anthropic request failed, will retry", "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		result = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Provider) doRequest(ctx context.Context, payload []byte) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, APIBaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.config.APIKey)
	req.Header.Set("anthropic-version", APIVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ai.EAITimeout
		}
		return nil, fmt.Errorf("%w: %v", ai.EAIUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ai.EAIUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ai.EAIRateLimit
	case resp.StatusCode >= 500:
		return nil, ai.EAIUnavailable
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}
	return &parsed, nil
}
