// Package config reads process configuration from the environment once at startup.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/joho/godotenv"
)

// DefaultCORSOrigins are the local development front ends
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// Config is the immutable process configuration. Components receive the parts they need at
// construction time.
type Config struct {
	Port        string
	DataDir     string
	LogLevel    string
	CORSOrigins []string
	EnableHSTS  bool

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	DefaultMode     string
	AnthropicAPIKey string
	GeminiAPIKey    string
	GeminiModel     string

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RateLimitPerMin int

	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	SMTPFrom         string
	ContactRecipient string

	MetalsAPIKey      string
	NewsFeeds         []string
	TablesFile        string
	MarketRefreshCron string
}

// Load reads .env when present, then the environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Ignoring unreadable .env file", "error", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	env := environment{lookup: lookup, invalid: make(map[string]string)}

	cfg := Config{
		Port:        env.str("PORT", "8080"),
		DataDir:     env.str("DATA_DIR", "./data"),
		LogLevel:    strings.ToLower(env.str("LOG_LEVEL", "info")),
		CORSOrigins: env.list("CORS_ORIGINS", DefaultCORSOrigins),
		EnableHSTS:  env.boolean("ENABLE_HSTS", false),

		OpenAIAPIKey:    env.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   env.str("OPENAI_BASE_URL", ""),
		DefaultMode:     env.str("OPENAI_MODE", generation.ModeComprehensive),
		AnthropicAPIKey: env.str("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    env.str("GEMINI_API_KEY", ""),
		GeminiModel:     env.str("GEMINI_MODEL", ""),

		RedisAddr:       env.str("REDIS_ADDR", ""),
		RedisPassword:   env.str("REDIS_PASSWORD", ""),
		RedisDB:         env.integer("REDIS_DB", 0),
		RateLimitPerMin: env.integer("RATE_LIMIT_PER_MIN", 30),

		SMTPHost:         env.str("SMTP_HOST", ""),
		SMTPPort:         env.integer("SMTP_PORT", 587),
		SMTPUser:         env.str("SMTP_USER", ""),
		SMTPPassword:     env.str("SMTP_PASSWORD", ""),
		SMTPFrom:         env.str("SMTP_FROM_EMAIL", ""),
		ContactRecipient: env.str("CONTACT_RECIPIENT", ""),

		MetalsAPIKey:      env.str("METALS_API_KEY", ""),
		NewsFeeds:         env.list("NEWS_FEEDS", nil),
		TablesFile:        env.str("TABLES_FILE", ""),
		MarketRefreshCron: env.str("MARKET_REFRESH_CRON", "@every 30m"),
	}

	if cfg.RateLimitPerMin <= 0 {
		env.invalid["RATE_LIMIT_PER_MIN"] = "must be positive"
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		env.invalid["LOG_LEVEL"] = "must be one of debug, info, warn, error"
	}

	if len(env.invalid) > 0 {
		return cfg, apperrors.NewConfigurationError("invalid environment", apperrors.NewValidationErrorWithMap(env.invalid))
	}
	return cfg, nil
}

// ModelConfigs returns the mode table with environment overrides applied
func (c Config) ModelConfigs() []generation.ModelConfig {
	configs := generation.DefaultModelConfigs()
	if c.GeminiModel == "" {
		return configs
	}
	for i := range configs {
		if configs[i].Provider == generation.ProviderGemini {
			configs[i].Model = c.GeminiModel
		}
	}
	return configs
}

// Modes builds the immutable mode table
func (c Config) Modes() *generation.Modes {
	return generation.NewModes(c.DefaultMode, c.ModelConfigs()...)
}

type environment struct {
	lookup  func(string) (string, bool)
	invalid map[string]string
}

func (e environment) str(key, fallback string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (e environment) integer(key string, fallback int) int {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		e.invalid[key] = "must be an integer"
		return fallback
	}
	return v
}

func (e environment) boolean(key string, fallback bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.invalid[key] = "must be a boolean"
		return fallback
	}
	return v
}

func (e environment) list(key string, fallback []string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
