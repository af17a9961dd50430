package generation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
)

// scriptedProvider returns the scripted errors in order, then text.
type scriptedProvider struct {
	name string
	errs []error
	text string

	mu        sync.Mutex
	calls     int
	requests  []Request
	timeouts  []time.Duration
	callTimes []time.Time
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Generate(ctx context.Context, req Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		p.timeouts = append(p.timeouts, time.Until(dl))
	}
	p.requests = append(p.requests, req)
	i := p.calls
	p.calls++
	if i < len(p.errs) {
		return "", p.errs[i]
	}
	return p.text, nil
}

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestOrchestrator(t *testing.T, sleeper *sleepRecorder, providers ...Provider) *Orchestrator {
	t.Helper()
	prompts, err := LoadPrompts()
	require.NoError(t, err)
	return NewOrchestrator(NewModes(ModeFast), prompts, providers, Options{
		Sleep:  sleeper.sleep,
		Health: resilience.NewDegradationManager(resilience.DefaultDegradationConfig()),
	})
}

func timeoutErr() error {
	return errors.NewTimeoutError("request timeout", context.DeadlineExceeded)
}

func TestCallRetriesTimeoutsThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{
		name: ProviderOpenAI,
		errs: []error{timeoutErr(), timeoutErr()},
		text: "| Scenario ID |\n|---|\n| S1 |",
	}
	sleeper := &sleepRecorder{}
	o := newTestOrchestrator(t, sleeper, provider)

	got := o.Call(context.Background(), Call{Prompt: "analyze", MaxTokens: 4000, Mode: ModeFast})

	require.True(t, got.OK(), "unexpected error: %v", got.Err)
	assert.Equal(t, provider.text, got.Text)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, got.Delays)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
	assert.Equal(t, []State{
		StatePending,
		StateCalling, StateRetryableFailure,
		StateCalling, StateRetryableFailure,
		StateCalling, StateSuccess,
	}, got.States)

	health, ok := o.health.GetServiceHealth(ProviderOpenAI)
	require.True(t, ok)
	assert.Equal(t, int64(3), health.TotalRequests)
	assert.Equal(t, int64(2), health.ErrorCount)
}

func TestCallOutcomes(t *testing.T) {
	tests := []struct {
		name         string
		mode         string
		errs         []error
		wantState    State
		wantAttempts int
		wantDelays   []time.Duration
		wantCategory errors.ErrorCategory
	}{
		{
			name:         "timeouts exhaust fast mode budget",
			mode:         ModeFast,
			errs:         []error{timeoutErr(), timeoutErr(), timeoutErr(), timeoutErr()},
			wantState:    StateExhausted,
			wantAttempts: 4,
			wantDelays:   []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
			wantCategory: errors.CategoryTimeout,
		},
		{
			name:         "connection failures are retried",
			mode:         ModeFast,
			errs:         []error{errors.NewNetworkError("network connection failed", fmt.Errorf("connection refused"))},
			wantState:    StateSuccess,
			wantAttempts: 2,
			wantDelays:   []time.Duration{time.Second},
		},
		{
			name:         "api errors are not retried",
			mode:         ModeFast,
			errs:         []error{errors.NewExternalAPIError(ProviderOpenAI, 400, fmt.Errorf("bad request"))},
			wantState:    StateFatalFailure,
			wantAttempts: 1,
			wantCategory: errors.CategoryExternalAPI,
		},
		{
			name:         "cancelled calls are not retried",
			mode:         ModeFast,
			errs:         []error{fmt.Errorf("openai request: %w", context.Canceled)},
			wantState:    StateFatalFailure,
			wantAttempts: 1,
			wantCategory: errors.CategoryCanceled,
		},
		{
			name:         "unknown mode uses the default",
			mode:         "turbo",
			errs:         nil,
			wantState:    StateSuccess,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &scriptedProvider{name: ProviderOpenAI, errs: tt.errs, text: "ok"}
			sleeper := &sleepRecorder{}
			o := newTestOrchestrator(t, sleeper, provider)

			got := o.Call(context.Background(), Call{Prompt: "p", MaxTokens: 100, Mode: tt.mode})

			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantAttempts, got.Attempts)
			assert.Equal(t, tt.wantDelays, got.Delays)
			assert.Equal(t, tt.wantState, got.States[len(got.States)-1])
			if tt.wantCategory != "" {
				require.Error(t, got.Err)
				assert.Equal(t, tt.wantCategory, errors.CategoryOf(got.Err))
				assert.True(t, got.Result().IsErr())
			} else {
				assert.NoError(t, got.Err)
			}
		})
	}
}

func TestCallScalesTokensAndGrowsTimeouts(t *testing.T) {
	provider := &scriptedProvider{name: ProviderOpenAI, errs: []error{timeoutErr()}, text: "done"}
	o := newTestOrchestrator(t, &sleepRecorder{}, provider)

	got := o.Call(context.Background(), Call{Prompt: "p", MaxTokens: 4000, Mode: ModeComprehensive})
	require.True(t, got.OK())

	require.Len(t, provider.requests, 2)
	assert.Equal(t, 8000, provider.requests[0].MaxTokens)
	assert.Equal(t, "gpt-5", provider.requests[0].Model)
	assert.Equal(t, "max_completion_tokens", provider.requests[0].TokenParam)

	require.Len(t, provider.timeouts, 2)
	assert.InDelta(t, (360 * time.Second).Seconds(), provider.timeouts[0].Seconds(), 1)
	assert.InDelta(t, (480 * time.Second).Seconds(), provider.timeouts[1].Seconds(), 1)
}

func TestCallWithoutProviderIsFatal(t *testing.T) {
	o := newTestOrchestrator(t, &sleepRecorder{}, &scriptedProvider{name: ProviderOpenAI, text: "x"})

	got := o.Call(context.Background(), Call{Prompt: "p", MaxTokens: 10, Mode: ModeComprehensiveClaude})

	assert.Equal(t, StateFatalFailure, got.State)
	assert.Equal(t, 0, got.Attempts)
	assert.Equal(t, errors.CategoryConfiguration, errors.CategoryOf(got.Err))
	assert.Equal(t, []State{StatePending, StateFatalFailure}, got.States)
}

func TestCallEmptyCompletionIsFatal(t *testing.T) {
	provider := &scriptedProvider{name: ProviderOpenAI, text: "   "}
	o := newTestOrchestrator(t, &sleepRecorder{}, provider)

	got := o.Call(context.Background(), Call{Prompt: "p", MaxTokens: 10})

	assert.Equal(t, StateFatalFailure, got.State)
	assert.Equal(t, errors.CategoryExternalAPI, errors.CategoryOf(got.Err))
}

func TestCallRendersTemplate(t *testing.T) {
	provider := &scriptedProvider{name: ProviderOpenAI, text: "summary"}
	o := newTestOrchestrator(t, &sleepRecorder{}, provider)

	got := o.Call(context.Background(), Call{
		Template:  TemplateComponentInfo,
		Data:      PartData{PartNumber: "ATMEGA328P"},
		MaxTokens: TokensComponentInfo,
	})

	require.True(t, got.OK())
	require.Len(t, provider.requests, 1)
	assert.Contains(t, provider.requests[0].Prompt, "ATMEGA328P")
}

func TestModesResolve(t *testing.T) {
	m := NewModes("FAST")
	assert.Equal(t, ModeFast, m.Default())
	assert.Equal(t, ModeFast, m.Resolve("").Mode)
	assert.Equal(t, ModeComprehensiveClaude, m.Resolve(" Comprehensive-Claude ").Mode)
	assert.Len(t, m.List(), 4)

	m = NewModes("nonsense")
	assert.Equal(t, ModeComprehensive, m.Default())

	cfg := m.Resolve(ModeComprehensiveClaude)
	assert.Equal(t, 180*time.Second, cfg.AttemptTimeout(0))
	assert.Equal(t, 300*time.Second, cfg.AttemptTimeout(2))
	assert.Equal(t, 1000, cfg.ScaleTokens(1000))
}
