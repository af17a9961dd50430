package adapters

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
)

type geminiGenerateFunc func(ctx context.Context, model string, maxTokens int32, prompt string) (*genai.GenerateContentResponse, error)

// GeminiProvider generates through the Gemini SDK.
type GeminiProvider struct {
	client   *genai.Client
	generate geminiGenerateFunc
	logger   *monitoring.Logger
}

// NewGeminiProvider opens a Gemini client for apiKey.
func NewGeminiProvider(ctx context.Context, apiKey string, logger *monitoring.Logger) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.NewConfigurationError("GEMINI_API_KEY is not set", nil)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create Gemini client", err)
	}

	p := newGeminiProvider(func(ctx context.Context, model string, maxTokens int32, prompt string) (*genai.GenerateContentResponse, error) {
		m := client.GenerativeModel(model)
		m.SetMaxOutputTokens(maxTokens)
		return m.GenerateContent(ctx, genai.Text(prompt))
	}, logger)
	p.client = client
	return p, nil
}

func newGeminiProvider(generate geminiGenerateFunc, logger *monitoring.Logger) *GeminiProvider {
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	return &GeminiProvider{generate: generate, logger: logger}
}

// Name implements generation.Provider.
func (p *GeminiProvider) Name() string { return generation.ProviderGemini }

// Generate implements generation.Provider.
func (p *GeminiProvider) Generate(ctx context.Context, req generation.Request) (string, error) {
	start := time.Now()
	resp, err := p.generate(ctx, req.Model, int32(req.MaxTokens), req.Prompt)
	if err != nil {
		p.logger.ExternalAPILogger(generation.ProviderGemini, "GenerateContent", req.Model, apiStatus(err), time.Since(start), false)
		return "", geminiError(err)
	}
	p.logger.ExternalAPILogger(generation.ProviderGemini, "GenerateContent", req.Model, 200, time.Since(start), true)

	var sb strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					sb.WriteString(string(text))
				}
			}
			// The first candidate with content is the answer.
			if sb.Len() > 0 {
				break
			}
		}
	}
	return sb.String(), nil
}

// Close releases the SDK client.
func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func geminiError(err error) error {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return errors.NewExternalAPIError(generation.ProviderGemini, apiErr.Code, stderrors.New(apiErr.Message))
	}
	return transportError(generation.ProviderGemini, err)
}

func apiStatus(err error) int {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
