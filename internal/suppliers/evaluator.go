package suppliers

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/classify"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/fn"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

// verifyConcurrency bounds parallel availability checks per request.
const verifyConcurrency = 4

const (
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

// Generator produces completions. *generation.Orchestrator satisfies it.
type Generator interface {
	Call(ctx context.Context, call generation.Call) generation.Completion
}

// AvailabilityChecker reports whether a supplier lists a part. Implementations resolve failures to true.
type AvailabilityChecker interface {
	HasComponent(ctx context.Context, supplier, manufacturer, part string) bool
}

// Evaluation is the response body of a supplier evaluation.
type Evaluation struct {
	PartNumber             string   `json:"partNumber"`
	Comparison             []Score  `json:"comparison"`
	RecommendedSupplier    string   `json:"recommendedSupplier"`
	RecommendationReason   string   `json:"recommendationReason"`
	ComponentInsights      string   `json:"componentInsights"`
	ResearchAddedSuppliers []string `json:"researchAddedSuppliers,omitempty"`
	ResearchReason         string   `json:"researchReason,omitempty"`
	Source                 string   `json:"source"`
}

type generatedEvaluation struct {
	Comparison           []Score `json:"comparison"`
	RecommendationReason string  `json:"recommendationReason"`
	ComponentInsights    string  `json:"componentInsights"`
}

// Evaluator runs the full supplier evaluation pipeline.
type Evaluator struct {
	ranker   *Ranker
	checker  AvailabilityChecker
	gen      Generator
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics
	MinCount int
	MaxCount int
}

// NewEvaluator wires an Evaluator. A nil checker treats every selected supplier as verified and a nil
// generator always uses the fallback model.
func NewEvaluator(ranker *Ranker, checker AvailabilityChecker, gen Generator, logger *monitoring.Logger, metrics *monitoring.Metrics) *Evaluator {
	if ranker == nil {
		ranker = DefaultRanker()
	}
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	return &Evaluator{
		ranker:   ranker,
		checker:  checker,
		gen:      gen,
		logger:   logger,
		metrics:  metrics,
		MinCount: DefaultMinCount,
		MaxCount: DefaultMaxCount,
	}
}

// Ranker returns the evaluator's ranker.
func (e *Evaluator) Ranker() *Ranker { return e.ranker }

// Evaluate ranks suppliers for req.PartNumber.
func (e *Evaluator) Evaluate(ctx context.Context, req types.SupplierEvaluationRequest) (Evaluation, error) {
	part := strings.TrimSpace(req.PartNumber)
	if part == "" {
		return Evaluation{}, errors.NewValidationError("partNumber is required", "partNumber")
	}

	profile := e.ranker.ProfilePart(part)
	rows := ParseSupplierTable(req.SupplierData.String())
	manufacturer := profile.Manufacturer
	for _, r := range rows {
		if r.Manufacturer != "" {
			manufacturer = r.Manufacturer
			break
		}
	}

	verified := e.verify(ctx, req.SelectedSuppliers, manufacturer, part)
	names, added := e.ranker.Candidates(append(verified, Discovered(rows)...), profile, e.MinCount)
	if len(names) == 0 {
		return Evaluation{}, errors.NewInternalError("No suppliers found for evaluation. Please select predetermined suppliers or ensure the AI finds alternative suppliers for this component.", nil)
	}

	out := Evaluation{PartNumber: part, ResearchAddedSuppliers: added}
	if len(added) > 0 {
		out.ResearchReason = fmt.Sprintf("Added specialized suppliers for %s to ensure comprehensive evaluation", profile.Type)
	}

	fallback := e.ranker.FallbackScores(names, part, profile)
	generated := e.generate(ctx, req, part, manufacturer, profile, rows, names, added)
	gen := fn.WithConservativeDefault(generated, generatedEvaluation{}, func(err error) {
		e.metrics.IncrementFallback()
		e.logger.FallbackLogger("supplier-evaluation", err.Error())
	})

	var scores []Score
	if generated.IsOk() {
		scores = mergeGenerated(gen.Comparison, fallback, manufacturer)
		out.Source = SourceGenerated
	} else {
		for i := range fallback {
			fallback[i].Manufacturer = manufacturer
		}
		scores = fallback
		out.Source = SourceFallback
	}

	out.Comparison = Finalize(scores, e.MaxCount)
	for i := range out.Comparison {
		out.Comparison[i].OrderLink = e.ranker.URLFor(out.Comparison[i].Name, part)
	}

	top := out.Comparison[0]
	out.RecommendedSupplier = top.Name
	if out.Source == SourceGenerated && strings.TrimSpace(gen.RecommendationReason) != "" {
		out.RecommendationReason = fmt.Sprintf("%s achieved the highest overall score (%d) among %d evaluated suppliers. %s",
			top.Name, top.OverallScore, len(out.Comparison), strings.TrimSpace(gen.RecommendationReason))
	} else {
		out.RecommendationReason = fmt.Sprintf("Best overall performance for %s components with %s focus among %d evaluated suppliers",
			profile.Type, strings.ToLower(top.Specialization), len(out.Comparison))
	}
	out.ComponentInsights = strings.TrimSpace(gen.ComponentInsights)
	if out.ComponentInsights == "" {
		out.ComponentInsights = insights(profile)
	}
	return out, nil
}

// verify checks the selected suppliers concurrently and returns those that list the part, in input order.
func (e *Evaluator) verify(ctx context.Context, selected []string, manufacturer, part string) []string {
	if len(selected) == 0 {
		return nil
	}
	if e.checker == nil {
		return append([]string(nil), selected...)
	}

	ok := make([]bool, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyConcurrency)
	for i, name := range selected {
		g.Go(func() error {
			ok[i] = e.checker.HasComponent(gctx, name, manufacturer, part)
			return nil
		})
	}
	_ = g.Wait()

	verified := make([]string, 0, len(selected))
	for i, name := range selected {
		if ok[i] {
			verified = append(verified, name)
		} else {
			e.logger.Debug("supplier does not list part", "supplier", name, "part", part)
		}
	}
	return verified
}

func (e *Evaluator) generate(ctx context.Context, req types.SupplierEvaluationRequest, part, manufacturer string,
	profile classify.PartProfile, rows []TableRow, names, added []string) fn.Result[generatedEvaluation] {
	if e.gen == nil {
		return fn.Errf[generatedEvaluation]("no generator configured")
	}

	completion := e.gen.Call(ctx, generation.Call{
		Template: generation.TemplateSupplierEvaluation,
		Data: generation.SupplierEvaluationData{
			PartNumber:        part,
			Profile:           describeProfile(profile),
			Manufacturer:      manufacturer,
			SupplierData:      req.SupplierData.String(),
			SelectedSuppliers: req.SelectedSuppliers,
			ResearchAdded:     added,
			ComponentType:     profile.Type,
			Suppliers:         names,
		},
		MaxTokens: generation.TokensSupplierEvaluation,
		Mode:      req.Mode,
	})
	if !completion.OK() {
		return fn.Err[generatedEvaluation](completion.Err)
	}

	var parsed generatedEvaluation
	if err := generation.DecodeJSON(completion.Text, &parsed); err != nil {
		return fn.Err[generatedEvaluation](err)
	}
	if len(mergeable(parsed.Comparison, names)) == 0 {
		return fn.Err[generatedEvaluation](errors.NewParseFailure("supplier comparison", nil))
	}
	return fn.Ok(parsed)
}

// mergeable keeps generated entries that name a candidate, first occurrence only.
func mergeable(generated []Score, names []string) []Score {
	allowed := make(map[string]string, len(names))
	for _, n := range names {
		allowed[normalize(n)] = n
	}
	seen := make(map[string]struct{}, len(generated))
	var out []Score
	for _, s := range generated {
		key := normalize(s.Name)
		name, ok := allowed[key]
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		s.Name = name
		out = append(out, s)
	}
	return out
}

// mergeGenerated clamps generated scores, recomputes overall scores and fills candidates the
// generation skipped with their fallback scores.
func mergeGenerated(generated, fallback []Score, manufacturer string) []Score {
	names := make([]string, 0, len(fallback))
	for _, f := range fallback {
		names = append(names, f.Name)
	}
	byName := make(map[string]Score)
	for _, s := range mergeable(generated, names) {
		s.CostScore = clampScore(s.CostScore)
		s.DeliveryScore = clampScore(s.DeliveryScore)
		s.QualityScore = clampScore(s.QualityScore)
		s.OverallScore = overall(s.CostScore, s.DeliveryScore, s.QualityScore)
		byName[normalize(s.Name)] = s
	}

	out := make([]Score, 0, len(fallback))
	for _, f := range fallback {
		s, ok := byName[normalize(f.Name)]
		if !ok {
			s = f
		}
		if s.Availability == "" {
			s.Availability = f.Availability
		}
		if s.Specialization == "" {
			s.Specialization = f.Specialization
		}
		if s.Manufacturer == "" || placeholder(s.Manufacturer) {
			s.Manufacturer = manufacturer
		}
		out = append(out, s)
	}
	return out
}

func describeProfile(p classify.PartProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Component Type: %s\n", p.Type)
	fmt.Fprintf(&b, "- Likely Manufacturer: %s\n", p.Manufacturer)
	fmt.Fprintf(&b, "- Complexity: %s\n", p.Complexity)
	fmt.Fprintf(&b, "- Sourcing Difficulty: %s\n", p.SourcingDifficulty)
	fmt.Fprintf(&b, "- Typical Lead Time: %s\n", p.TypicalLeadTime)
	fmt.Fprintf(&b, "- Allocation Risk: %s\n", p.AllocationRisk)
	if len(p.KeyFactors) > 0 {
		fmt.Fprintf(&b, "- Key Factors: %s", strings.Join(p.KeyFactors, ", "))
	}
	return strings.TrimSpace(b.String())
}

func insights(p classify.PartProfile) string {
	return fmt.Sprintf("This %s has %s sourcing difficulty with typical lead times of %s",
		p.Type, strings.ToLower(p.SourcingDifficulty), p.TypicalLeadTime)
}
