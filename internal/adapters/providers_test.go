package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
)

func TestOpenAIProviderGenerate(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"risk table"}}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("sk-test", server.URL+"/", nil, nil)
	text, err := p.Generate(context.Background(), generation.Request{
		Prompt:     "analyze",
		MaxTokens:  8000,
		Model:      "gpt-5",
		TokenParam: "max_completion_tokens",
	})

	require.NoError(t, err)
	assert.Equal(t, "risk table", text)
	assert.Equal(t, "gpt-5", payload["model"])
	assert.Equal(t, float64(8000), payload["max_completion_tokens"])
	assert.NotContains(t, payload, "max_tokens")
	assert.Equal(t, generation.ProviderOpenAI, p.Name())
}

func TestOpenAIProviderErrors(t *testing.T) {
	rejected := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer rejected.Close()

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name      string
		apiKey    string
		baseURL   string
		category  errors.ErrorCategory
		retryable bool
	}{
		{"rejected request", "sk", rejected.URL, errors.CategoryExternalAPI, false},
		{"connection refused", "sk", closedURL, errors.CategoryNetwork, true},
		{"missing key", "", rejected.URL, errors.CategoryConfiguration, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewOpenAIProvider(tt.apiKey, tt.baseURL, nil, nil)
			_, err := p.Generate(context.Background(), generation.Request{Prompt: "x", MaxTokens: 10, Model: "gpt-4o-mini"})
			require.Error(t, err)
			assert.Equal(t, tt.category, errors.CategoryOf(err))
			assert.Equal(t, tt.retryable, errors.IsRetryableError(err))
		})
	}
}

func TestOpenAIProviderCancelledContextIsNotRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewOpenAIProvider("sk", server.URL, nil, nil)
	_, err := p.Generate(ctx, generation.Request{Prompt: "x", MaxTokens: 10})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryCanceled, errors.CategoryOf(err))
	assert.False(t, errors.IsRetryableError(err))
}

func TestPoolReportsCallOutcomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/completions":
			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	metrics := monitoring.NewMetrics()
	pool := NewPool("upstream", 2)
	pool.SetRecorder("upstream", metrics.RecordExternalAPIRequest)
	defer pool.Close()

	_, err := NewOpenAIProvider("sk", server.URL, pool, nil).
		Generate(context.Background(), generation.Request{Prompt: "x", MaxTokens: 10})
	require.NoError(t, err)

	status, _, err := getBody(context.Background(), pool, server.URL+"/missing", nil, 64)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)

	status, _, err = getBody(context.Background(), pool, server.URL+"/down", nil, 64)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	assert.Equal(t, int64(3), metrics.ExternalAPIRequests["upstream"])
	assert.Equal(t, int64(1), metrics.ExternalAPIErrorCount["upstream"])
}

func TestAnthropicProviderGenerate(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "claude-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"part one, "},{"type":"tool_use"},{"type":"text","text":"part two"}]}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider("claude-key", server.URL, nil, nil)
	text, err := p.Generate(context.Background(), generation.Request{Prompt: "plan", MaxTokens: 4000, Model: "claude-3-5-sonnet-20241022"})

	require.NoError(t, err)
	assert.Equal(t, "part one, part two", text)
	assert.Equal(t, float64(4000), payload["max_tokens"])
	assert.Equal(t, generation.ProviderAnthropic, p.Name())
}

func TestAnthropicProviderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewAnthropicProvider("k", server.URL, nil, nil)
	_, err := p.Generate(context.Background(), generation.Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryExternalAPI, errors.CategoryOf(err))
	assert.False(t, errors.IsRetryableError(err))
}

func TestGeminiProviderGenerate(t *testing.T) {
	var gotModel string
	var gotTokens int32
	p := newGeminiProvider(func(_ context.Context, model string, maxTokens int32, prompt string) (*genai.GenerateContentResponse, error) {
		gotModel, gotTokens = model, maxTokens
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("alpha "), genai.Text("beta")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		}}, nil
	}, nil)

	text, err := p.Generate(context.Background(), generation.Request{Prompt: "p", MaxTokens: 2000, Model: "gemini-1.5-pro"})
	require.NoError(t, err)
	assert.Equal(t, "alpha beta", text)
	assert.Equal(t, "gemini-1.5-pro", gotModel)
	assert.Equal(t, int32(2000), gotTokens)
	assert.NoError(t, p.Close())
}

func TestGeminiProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category errors.ErrorCategory
	}{
		{"api error", &googleapi.Error{Code: http.StatusForbidden, Message: "key rejected"}, errors.CategoryExternalAPI},
		{"deadline", context.DeadlineExceeded, errors.CategoryTimeout},
		{"cancelled", context.Canceled, errors.CategoryCanceled},
		{"unclassified failure", assert.AnError, errors.CategoryNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newGeminiProvider(func(context.Context, string, int32, string) (*genai.GenerateContentResponse, error) {
				return nil, tt.err
			}, nil)
			_, err := p.Generate(context.Background(), generation.Request{Prompt: "p"})
			require.Error(t, err)
			assert.Equal(t, tt.category, errors.CategoryOf(err))
		})
	}
}

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "", nil)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfiguration, errors.CategoryOf(err))
}
