package adapters

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
)

const (
	DefaultAnthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion        = "2023-06-01"
)

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnthropicProvider calls the messages API.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	pool    *resilience.ConnectionPool
	logger  *monitoring.Logger
}

// NewAnthropicProvider creates the provider. An empty baseURL uses the public API.
func NewAnthropicProvider(apiKey, baseURL string, pool *resilience.ConnectionPool, logger *monitoring.Logger) *AnthropicProvider {
	if baseURL == "" {
		baseURL = DefaultAnthropicBaseURL
	}
	if pool == nil {
		pool = NewPool(generation.ProviderAnthropic, 8)
	}
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		pool:    pool,
		logger:  logger,
	}
}

// Name implements generation.Provider.
func (p *AnthropicProvider) Name() string { return generation.ProviderAnthropic }

// Generate implements generation.Provider.
func (p *AnthropicProvider) Generate(ctx context.Context, req generation.Request) (string, error) {
	if p.apiKey == "" {
		return "", errors.NewConfigurationError("ANTHROPIC_API_KEY is not set", nil)
	}

	payload := map[string]any{
		"model":      req.Model,
		"max_tokens": req.MaxTokens,
		"messages":   []map[string]string{{"role": "user", "content": req.Prompt}},
	}
	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var out anthropicResponse
	if err := postJSON(ctx, p.pool, p.logger, generation.ProviderAnthropic, p.baseURL+"/messages", headers, payload, &out); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "" || block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
