package config

import (
	"testing"

	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultCORSOrigins, cfg.CORSOrigins)
	assert.False(t, cfg.EnableHSTS)
	assert.Equal(t, generation.ModeComprehensive, cfg.DefaultMode)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, "@every 30m", cfg.MarketRefreshCron)
	assert.Nil(t, cfg.NewsFeeds)
}

func TestFromLookupOverrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"PORT":               "9090",
		"LOG_LEVEL":          "DEBUG",
		"CORS_ORIGINS":       "https://risk.example.com, ,https://admin.example.com",
		"ENABLE_HSTS":        "true",
		"OPENAI_MODE":        "fast",
		"REDIS_DB":           "2",
		"RATE_LIMIT_PER_MIN": "5",
		"NEWS_FEEDS":         "https://a.example/rss,https://b.example/rss",
		"GEMINI_MODEL":       "gemini-2.0-flash",
	}))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://risk.example.com", "https://admin.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.EnableHSTS)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 5, cfg.RateLimitPerMin)
	assert.Len(t, cfg.NewsFeeds, 2)

	modes := cfg.Modes()
	assert.Equal(t, generation.ModeFast, modes.Default())
	assert.Equal(t, "gemini-2.0-flash", modes.Resolve(generation.ModeComprehensiveGemini).Model)
	assert.Equal(t, "gpt-5", modes.Resolve(generation.ModeComprehensive).Model)
}

func TestFromLookupInvalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "non-numeric port for smtp", vars: map[string]string{"SMTP_PORT": "smtp"}},
		{name: "negative rate limit", vars: map[string]string{"RATE_LIMIT_PER_MIN": "-1"}},
		{name: "bad boolean", vars: map[string]string{"ENABLE_HSTS": "sometimes"}},
		{name: "unknown log level", vars: map[string]string{"LOG_LEVEL": "verbose"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.vars))
			require.Error(t, err)
			assert.Equal(t, apperrors.CategoryConfiguration, apperrors.CategoryOf(err))
		})
	}
}
