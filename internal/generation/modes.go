package generation

import (
	"sort"
	"strings"
	"time"
)

// Provider names used in the mode table.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Mode names.
const (
	ModeComprehensive       = "comprehensive"
	ModeComprehensiveClaude = "comprehensive-claude"
	ModeComprehensiveGemini = "comprehensive-gemini"
	ModeFast                = "fast"
)

// ModelConfig describes how one mode calls its provider.
type ModelConfig struct {
	Mode     string `json:"mode"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	// Timeout is the first attempt's timeout; attempt n gets Timeout + n*TimeoutStep.
	Timeout         time.Duration `json:"timeout"`
	TimeoutStep     time.Duration `json:"timeoutStep"`
	MaxRetries      int           `json:"maxRetries"`
	TokenParam      string        `json:"tokenParam"`
	TokenMultiplier float64       `json:"tokenMultiplier"`
	Description     string        `json:"description"`
}

// AttemptTimeout returns the timeout for a zero-based attempt.
func (c ModelConfig) AttemptTimeout(attempt int) time.Duration {
	return c.Timeout + time.Duration(attempt)*c.TimeoutStep
}

// ScaleTokens applies the model's token multiplier to a requested budget.
func (c ModelConfig) ScaleTokens(requested int) int {
	if c.TokenMultiplier <= 0 {
		return requested
	}
	return int(float64(requested)*c.TokenMultiplier + 0.5)
}

// DefaultModelConfigs returns the built-in mode table.
func DefaultModelConfigs() []ModelConfig {
	return []ModelConfig{
		{
			Mode:            ModeComprehensive,
			Provider:        ProviderOpenAI,
			Model:           "gpt-5",
			Timeout:         360 * time.Second,
			TimeoutStep:     120 * time.Second,
			MaxRetries:      3,
			TokenParam:      "max_completion_tokens",
			TokenMultiplier: 2.0,
			Description:     "Deep reasoning analysis, slower but more thorough",
		},
		{
			Mode:            ModeComprehensiveClaude,
			Provider:        ProviderAnthropic,
			Model:           "claude-3-5-sonnet-20241022",
			Timeout:         180 * time.Second,
			TimeoutStep:     60 * time.Second,
			MaxRetries:      2,
			TokenParam:      "max_tokens",
			TokenMultiplier: 1.0,
			Description:     "Detailed analysis on the secondary provider",
		},
		{
			Mode:            ModeComprehensiveGemini,
			Provider:        ProviderGemini,
			Model:           "gemini-1.5-pro",
			Timeout:         180 * time.Second,
			TimeoutStep:     60 * time.Second,
			MaxRetries:      2,
			TokenParam:      "max_output_tokens",
			TokenMultiplier: 1.0,
			Description:     "Detailed analysis on the Gemini provider",
		},
		{
			Mode:            ModeFast,
			Provider:        ProviderOpenAI,
			Model:           "gpt-4o-mini",
			Timeout:         60 * time.Second,
			TimeoutStep:     120 * time.Second,
			MaxRetries:      3,
			TokenParam:      "max_tokens",
			TokenMultiplier: 1.0,
			Description:     "Quick analysis for rapid iteration",
		},
	}
}

// Modes is the immutable mode table.
type Modes struct {
	byName      map[string]ModelConfig
	defaultMode string
}

// NewModes builds a table from configs. An unknown defaultMode falls back to comprehensive, or to
// the first config when that is missing too.
func NewModes(defaultMode string, configs ...ModelConfig) *Modes {
	if len(configs) == 0 {
		configs = DefaultModelConfigs()
	}
	m := &Modes{byName: make(map[string]ModelConfig, len(configs))}
	for _, c := range configs {
		m.byName[c.Mode] = c
	}

	defaultMode = normalizeMode(defaultMode)
	switch {
	case m.has(defaultMode):
		m.defaultMode = defaultMode
	case m.has(ModeComprehensive):
		m.defaultMode = ModeComprehensive
	default:
		m.defaultMode = configs[0].Mode
	}
	return m
}

func normalizeMode(mode string) string {
	return strings.ToLower(strings.TrimSpace(mode))
}

func (m *Modes) has(mode string) bool {
	_, ok := m.byName[mode]
	return ok
}

// Default returns the default mode name.
func (m *Modes) Default() string { return m.defaultMode }

// Resolve returns the config for mode, or the default mode's config when mode is empty or unknown.
func (m *Modes) Resolve(mode string) ModelConfig {
	if c, ok := m.byName[normalizeMode(mode)]; ok {
		return c
	}
	return m.byName[m.defaultMode]
}

// List returns every config sorted by mode name.
func (m *Modes) List() []ModelConfig {
	out := make([]ModelConfig, 0, len(m.byName))
	for _, c := range m.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mode < out[j].Mode })
	return out
}
