package adapters

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
)

const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIProvider calls the chat completions endpoint.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	pool    *resilience.ConnectionPool
	logger  *monitoring.Logger
}

// NewOpenAIProvider creates the provider. An empty baseURL uses the public API.
func NewOpenAIProvider(apiKey, baseURL string, pool *resilience.ConnectionPool, logger *monitoring.Logger) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if pool == nil {
		pool = NewPool(generation.ProviderOpenAI, 16)
	}
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		pool:    pool,
		logger:  logger,
	}
}

// Name implements generation.Provider.
func (p *OpenAIProvider) Name() string { return generation.ProviderOpenAI }

// Generate implements generation.Provider. The token budget goes in the field named by
// req.TokenParam since newer models reject max_tokens.
func (p *OpenAIProvider) Generate(ctx context.Context, req generation.Request) (string, error) {
	if p.apiKey == "" {
		return "", errors.NewConfigurationError("OPENAI_API_KEY is not set", nil)
	}

	tokenParam := req.TokenParam
	if tokenParam == "" {
		tokenParam = "max_tokens"
	}
	payload := map[string]any{
		"model":    req.Model,
		"messages": []openAIMessage{{Role: "user", Content: req.Prompt}},
	}
	payload[tokenParam] = req.MaxTokens

	var out openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if err := postJSON(ctx, p.pool, p.logger, generation.ProviderOpenAI, p.baseURL+"/chat/completions", headers, payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}
