// Package llm implements the analysis collaborator on top of an
// OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/standardbeagle/lcw/internal/config"
	"github.com/standardbeagle/lcw/internal/debug"
)

const systemPrompt = "You are a code analysis assistant. Analyze the " +
	"described change and report likely problems, risky edits, and " +
	"follow-up work. Be concise and concrete."

// Client sends analysis tasks to a chat completion endpoint. Requests
// are rate limited client-side so a burst of fired jobs cannot exhaust
// the provider quota.
type Client struct {
	api     *openai.Client
	model   string
	limiter *rate.Limiter
	enabled bool
}

// NewClient builds a client from the analyzer configuration. A missing
// API key yields a disabled client whose Analyze calls fail with a
// descriptive error rather than a panic, so watch mode stays usable for
// classification and scheduling inspection.
func NewClient(cfg config.Analyzer) *Client {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		debug.LogAnalysis("analyzer disabled: %s not set\n", cfg.APIKeyEnv)
		return &Client{model: cfg.Model}
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}

	return &Client{
		api:     openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		enabled: true,
	}
}

// IsEnabled reports whether an API key was configured.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// Analyze sends one task description to the model and returns its
// response text. The context carries the per-request deadline.
func (c *Client) Analyze(ctx context.Context, task string, filePath string) (string, error) {
	if !c.enabled {
		return "", fmt.Errorf("analyzer not configured: no API key")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: task,
			},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("completion for %s failed: %w", filePath, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion for %s returned no choices", filePath)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
