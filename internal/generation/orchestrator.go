// Package generation drives templated calls to text-generation providers and shapes their
// responses into HTML and JSON.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/fn"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/resilience"
)

// State is a step of the per-call state machine.
type State string

const (
	StatePending          State = "PENDING"
	StateCalling          State = "CALLING"
	StateRetryableFailure State = "RETRYABLE_FAILURE"
	StateSuccess          State = "SUCCESS"
	StateExhausted        State = "EXHAUSTED"
	StateFatalFailure     State = "FATAL_FAILURE"
)

// Base token budgets per template, before the mode multiplier.
const (
	TokensDisruptionAnalysis  = 4000
	TokensScenarioExplain     = 5000
	TokensMitigationPlan      = 8000
	TokensSupplierEvaluation  = 3000
	TokensSupplierDiscovery   = 2000
	TokensComponentInfo       = 2000
	TokensAIAction            = 4000
	TokensScenarioProbability = 1500
)

// Call is one generation request. Prompt wins over Template when both are set.
type Call struct {
	Template  string
	Data      any
	Prompt    string
	MaxTokens int
	Mode      string
}

// Completion is the outcome of a call. Err is set for EXHAUSTED and FATAL_FAILURE.
type Completion struct {
	Text     string          `json:"text,omitempty"`
	State    State           `json:"state"`
	States   []State         `json:"states"`
	Attempts int             `json:"attempts"`
	Delays   []time.Duration `json:"delays,omitempty"`
	Mode     string          `json:"mode"`
	Provider string          `json:"provider"`
	Err      error           `json:"-"`
}

// OK reports whether the call succeeded.
func (c Completion) OK() bool { return c.State == StateSuccess }

// Result converts the completion to a Result for callers that fall back on failure.
func (c Completion) Result() fn.Result[string] {
	if c.OK() {
		return fn.Ok(c.Text)
	}
	return fn.Err[string](c.Err)
}

// Options carries the orchestrator's observers. Zero values get working defaults.
type Options struct {
	Logger  *monitoring.Logger
	Metrics *monitoring.Metrics
	Tracer  *monitoring.Tracer
	Health  *resilience.DegradationManager
	// Sleep waits between attempts; tests replace it to observe backoff without waiting.
	Sleep resilience.SleepFunc
}

// Orchestrator routes calls to providers according to the mode table.
type Orchestrator struct {
	modes     *Modes
	prompts   *Prompts
	providers map[string]Provider
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics
	tracer    *monitoring.Tracer
	health    *resilience.DegradationManager
	sleep     resilience.SleepFunc
}

// NewOrchestrator wires providers by name. Modes whose provider is missing fail fatally when used.
func NewOrchestrator(modes *Modes, prompts *Prompts, providers []Provider, opts Options) *Orchestrator {
	if modes == nil {
		modes = NewModes("")
	}
	if prompts == nil {
		prompts = MustLoadPrompts()
	}
	if opts.Logger == nil {
		opts.Logger = monitoring.NewLogger("error")
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	if opts.Tracer == nil {
		opts.Tracer = monitoring.NewTracer("generation")
	}
	if opts.Sleep == nil {
		opts.Sleep = resilience.ContextSleep
	}

	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p != nil {
			byName[p.Name()] = p
		}
	}

	return &Orchestrator{
		modes:     modes,
		prompts:   prompts,
		providers: byName,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		health:    opts.Health,
		sleep:     opts.Sleep,
	}
}

// Modes returns the mode table.
func (o *Orchestrator) Modes() *Modes { return o.modes }

// Prompts returns the template set.
func (o *Orchestrator) Prompts() *Prompts { return o.prompts }

// Call runs the state machine for one request: PENDING, then CALLING with RETRYABLE_FAILURE
// between attempts, ending in SUCCESS, EXHAUSTED or FATAL_FAILURE. Timeout and connection
// failures are retried up to MaxRetries times with 1s, 2s, 4s... backoff; everything else
// fails immediately.
func (o *Orchestrator) Call(ctx context.Context, call Call) Completion {
	cfg := o.modes.Resolve(call.Mode)
	out := Completion{
		State:    StatePending,
		States:   []State{StatePending},
		Mode:     cfg.Mode,
		Provider: cfg.Provider,
	}
	start := time.Now()

	ctx, span := o.tracer.StartSpan(ctx, "generation.call",
		attribute.String("generation.mode", cfg.Mode),
		attribute.String("generation.provider", cfg.Provider),
		attribute.String("generation.template", call.Template))
	defer func() {
		span.SetAttributes(
			attribute.String("generation.state", string(out.State)),
			attribute.Int("generation.attempts", out.Attempts))
		monitoring.EndSpan(span, out.Err)
		o.metrics.RecordGeneration(string(out.State))
		o.logger.GenerationLogger(cfg.Mode, cfg.Provider, string(out.State), out.Attempts, time.Since(start))
	}()

	prompt, err := o.prompt(call)
	if err != nil {
		o.fail(&out, StateFatalFailure, err)
		return out
	}

	provider, ok := o.providers[cfg.Provider]
	if !ok {
		o.fail(&out, StateFatalFailure, errors.NewConfigurationError(
			fmt.Sprintf("no provider configured for mode %q (%s)", cfg.Mode, cfg.Provider), nil))
		return out
	}

	req := Request{
		Prompt:     prompt,
		MaxTokens:  cfg.ScaleTokens(call.MaxTokens),
		Model:      cfg.Model,
		TokenParam: cfg.TokenParam,
	}

	retryCfg := resilience.GenerationRetryPolicy.Config
	retryCfg.MaxAttempts = cfg.MaxRetries + 1
	retryCfg.RetryableErrors = errors.IsRetryableError
	retryCfg.Sleep = o.sleep
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		out.States = append(out.States, StateRetryableFailure)
		out.Delays = append(out.Delays, delay)
		o.logger.Warn("Generation attempt failed, retrying",
			"mode", cfg.Mode,
			"provider", cfg.Provider,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err.Error())
	}

	var text string
	err = resilience.RetryWithConfig(ctx, retryCfg, func(ctx context.Context, attempt int) error {
		out.States = append(out.States, StateCalling)
		out.Attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.AttemptTimeout(attempt))
		defer cancel()

		t, err := provider.Generate(attemptCtx, req)
		if err == nil && strings.TrimSpace(t) == "" {
			err = errors.NewExternalAPIError(provider.Name(), 200, fmt.Errorf("empty completion"))
		}
		if err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil &&
			errors.CategoryOf(err) != errors.CategoryTimeout {
			err = errors.NewTimeoutError(fmt.Sprintf("%s call exceeded %s", provider.Name(), cfg.AttemptTimeout(attempt)), err)
		}
		o.health.RecordResult(provider.Name(), err)
		if err != nil {
			return err
		}
		text = t
		return nil
	})

	if err != nil {
		if errors.IsRetryableError(err) {
			o.fail(&out, StateExhausted, err)
		} else {
			o.fail(&out, StateFatalFailure, err)
		}
		return out
	}

	out.Text = text
	out.State = StateSuccess
	out.States = append(out.States, StateSuccess)
	return out
}

func (o *Orchestrator) prompt(call Call) (string, error) {
	if strings.TrimSpace(call.Prompt) != "" {
		return call.Prompt, nil
	}
	if call.Template == "" {
		return "", errors.NewValidationError("generation call needs a prompt or a template")
	}
	return o.prompts.Render(call.Template, call.Data)
}

func (o *Orchestrator) fail(out *Completion, state State, err error) {
	out.State = state
	out.States = append(out.States, state)
	out.Err = err
}
