package suppliers

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

const discoveryTable = `| Part Number | Manufacturer | Supplier | Stock | Evaluation Link | Notes |
|---|---|---|---|---|---|
| ATMEGA328P | Microchip | LCSC | In Stock | [Evaluate Suppliers](URL) | Asia stock |
| ATMEGA328P | Microchip | Rochester Electronics | Limited | [Evaluate Suppliers](URL) | EOL specialist |
| ATMEGA328P | [Manufacturer] | [Supplier] | - | - | - |`

type stubChecker struct {
	mu     sync.Mutex
	listed map[string]bool
	calls  []string
}

func (s *stubChecker) HasComponent(_ context.Context, supplier, _, _ string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, supplier)
	return s.listed[supplier]
}

type stubGenerator struct {
	completion generation.Completion
	calls      []generation.Call
}

func (s *stubGenerator) Call(_ context.Context, call generation.Call) generation.Completion {
	s.calls = append(s.calls, call)
	return s.completion
}

func recommendedCount(scores []Score) int {
	n := 0
	for _, s := range scores {
		if s.Recommended {
			n++
		}
	}
	return n
}

func names(scores []Score) []string {
	out := make([]string, 0, len(scores))
	for _, s := range scores {
		out = append(out, s.Name)
	}
	return out
}

func TestURLFor(t *testing.T) {
	r := DefaultRanker()

	tests := []struct {
		supplier string
		part     string
		want     string
	}{
		{"Digi-Key", "ATMEGA328P", "https://www.digikey.com/en/products/search?keywords=ATMEGA328P"},
		{"Mouser Electronics", "LM358", "https://www.mouser.com/c/?q=LM358"},
		{"LCSC", "STM32F103", "https://www.lcsc.com/search?q=STM32F103"},
		{"Avnet", "SN74HC00", "https://www.avnet.com/shop/us/search/SN74HC00"},
		{"McMaster-Carr", "91292A113", "https://www.mcmaster.com/search?query=91292A113"},
		{"Unknown Parts Co", "AB 12", "https://www.digikey.com/en/products/search?keywords=AB%2012"},
	}

	for _, tt := range tests {
		t.Run(tt.supplier, func(t *testing.T) {
			assert.Equal(t, tt.want, r.URLFor(tt.supplier, tt.part))
		})
	}
}

func TestBackfillFor(t *testing.T) {
	r := DefaultRanker()
	electronics := []string{"Digi-Key", "Mouser", "Arrow", "Newark", "Farnell"}

	tests := []struct {
		componentType string
		want          []string
	}{
		{"Microcontroller", electronics},
		{"Electronic Component", electronics},
		{"Humidity Sensor", []string{"Digi-Key", "Mouser", "Arrow", "Newark", "RS Components"}},
		{"Fastener", []string{"McMaster-Carr", "RS Components", "Allied Electronics", "Newark"}},
		{"Cable Assembly", []string{"Digi-Key", "Mouser", "Allied Electronics", "Newark", "RS Components"}},
		{"Test Equipment", []string{"RS Components", "Allied Electronics", "Newark", "McMaster-Carr"}},
		{"Mystery", []string{"Digi-Key", "Mouser", "Arrow", "Newark", "RS Components"}},
	}

	for _, tt := range tests {
		t.Run(tt.componentType, func(t *testing.T) {
			assert.Equal(t, tt.want, r.BackfillFor(tt.componentType))
		})
	}
}

func TestCandidatesDedupAndBackfill(t *testing.T) {
	r := DefaultRanker()
	profile := r.ProfilePart("ATMEGA328P")

	got, added := r.Candidates([]string{"Mouser", " mouser ", "LCSC", ""}, profile, DefaultMinCount)
	assert.Equal(t, []string{"Mouser", "LCSC", "Digi-Key", "Arrow", "Newark"}, got)
	assert.Equal(t, []string{"Digi-Key", "Arrow", "Newark"}, added)

	got, added = r.Candidates([]string{"A", "B", "C", "D", "E", "F"}, profile, DefaultMinCount)
	assert.Len(t, got, 6)
	assert.Empty(t, added)
}

func TestFallbackScoresAreSeededAndBounded(t *testing.T) {
	r := DefaultRanker()
	profile := r.ProfilePart("STM32F103C8T6")
	candidates := []string{"Digi-Key", "Mouser", "Arrow", "Newark", "RS Components", "Farnell", "Allied Electronics", "Local Broker"}

	first := r.FallbackScores(candidates, "STM32F103C8T6", profile)
	second := r.FallbackScores(candidates, "stm32f103c8t6", profile)
	assert.Equal(t, first, second)

	cycle := DefaultTables().AvailabilityCycle
	for i, s := range first {
		assert.GreaterOrEqual(t, s.CostScore, MinScore)
		assert.LessOrEqual(t, s.CostScore, MaxScore)
		assert.GreaterOrEqual(t, s.DeliveryScore, MinScore)
		assert.LessOrEqual(t, s.DeliveryScore, MaxScore)
		assert.GreaterOrEqual(t, s.QualityScore, MinScore)
		assert.LessOrEqual(t, s.QualityScore, MaxScore)
		assert.Equal(t, overall(s.CostScore, s.DeliveryScore, s.QualityScore), s.OverallScore)
		assert.Equal(t, cycle[i%len(cycle)], s.Availability)
		assert.Equal(t, "STMicroelectronics", s.Manufacturer)
	}
	assert.Equal(t, "Independent Distribution", first[7].Specialization)
	assert.Equal(t, "Prototyping & Development", first[0].Specialization)
}

func TestFinalize(t *testing.T) {
	scores := []Score{
		{Name: "A", OverallScore: 80, Recommended: true},
		{Name: "B", OverallScore: 90},
		{Name: "C", OverallScore: 90},
		{Name: "D", OverallScore: 70},
	}

	got := Finalize(scores, 3)
	assert.Equal(t, []string{"B", "C", "A"}, names(got))
	assert.True(t, got[0].Recommended)
	assert.Equal(t, 1, recommendedCount(got))
	assert.True(t, scores[0].Recommended, "input is not modified")

	assert.Empty(t, Finalize(nil, 8))
}

func TestRank(t *testing.T) {
	r := DefaultRanker()

	got := r.Rank([]string{"LCSC"}, "ATMEGA328P", DefaultMinCount, DefaultMaxCount)
	assert.Len(t, got.Comparison, 5)
	assert.Equal(t, 1, recommendedCount(got.Comparison))
	assert.True(t, got.Comparison[0].Recommended)
	assert.Equal(t, []string{"Digi-Key", "Mouser", "Arrow", "Newark"}, got.ResearchAdded)
	assert.Equal(t, "Microcontroller", got.Profile.Type)
	for i := 1; i < len(got.Comparison); i++ {
		assert.GreaterOrEqual(t, got.Comparison[i-1].OverallScore, got.Comparison[i].OverallScore)
	}
}

func TestParseSupplierTable(t *testing.T) {
	rows := ParseSupplierTable(discoveryTable + "\n| too | short |\nnot a table line")
	assert.Equal(t, []TableRow{
		{Manufacturer: "Microchip", Supplier: "LCSC"},
		{Manufacturer: "Microchip", Supplier: "Rochester Electronics"},
	}, rows)
	assert.Equal(t, []string{"LCSC", "Rochester Electronics"}, Discovered(rows))
	assert.Empty(t, ParseSupplierTable(""))
}

func TestEvaluateBackfillsWhenSelectedSuppliersAreUnverified(t *testing.T) {
	checker := &stubChecker{listed: map[string]bool{}}
	e := NewEvaluator(DefaultRanker(), checker, nil, nil, nil)

	got, err := e.Evaluate(context.Background(), types.SupplierEvaluationRequest{
		PartNumber:        "ATMEGA328P",
		SupplierData:      types.FlexText(discoveryTable),
		SelectedSuppliers: []string{"Digi-Key", "Mouser", "Arrow"},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Digi-Key", "Mouser", "Arrow"}, checker.calls)
	assert.Len(t, got.Comparison, 5)
	assert.ElementsMatch(t, []string{"LCSC", "Rochester Electronics", "Digi-Key", "Mouser", "Arrow"}, names(got.Comparison))
	assert.Equal(t, 1, recommendedCount(got.Comparison))
	assert.True(t, got.Comparison[0].Recommended)
	assert.Equal(t, got.Comparison[0].Name, got.RecommendedSupplier)
	assert.Equal(t, []string{"Digi-Key", "Mouser", "Arrow"}, got.ResearchAddedSuppliers)
	assert.Equal(t, "Added specialized suppliers for Microcontroller to ensure comprehensive evaluation", got.ResearchReason)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Contains(t, got.RecommendationReason, "Best overall performance for Microcontroller components with")
	assert.Equal(t, "This Microcontroller has medium sourcing difficulty with typical lead times of 8-16 weeks", got.ComponentInsights)
	for _, s := range got.Comparison {
		assert.NotEmpty(t, s.OrderLink)
		assert.Equal(t, "Microchip", s.Manufacturer)
	}
}

func TestEvaluateUsesGeneratedScores(t *testing.T) {
	gen := &stubGenerator{completion: generation.Completion{
		State: generation.StateSuccess,
		Text: "```json\n" + `{
  "comparison": [
    {"name": "digi-key", "costScore": 99, "deliveryScore": 90, "qualityScore": 90, "availability": "In Stock", "overallScore": 10, "specialization": "Fast prototyping"},
    {"name": "Mouser", "costScore": 80, "deliveryScore": 80, "qualityScore": 80, "availability": "Back Order"},
    {"name": "Bogus Parts", "costScore": 95, "deliveryScore": 95, "qualityScore": 95}
  ],
  "recommendationReason": "Authorized stock with fast shipping.",
  "componentInsights": "Watch for counterfeit risk."
}` + "\n```",
	}}
	checker := &stubChecker{listed: map[string]bool{"Digi-Key": true, "Mouser": true}}
	e := NewEvaluator(DefaultRanker(), checker, gen, nil, nil)

	got, err := e.Evaluate(context.Background(), types.SupplierEvaluationRequest{
		PartNumber:        "ATMEGA328P",
		SupplierData:      types.FlexText(discoveryTable),
		SelectedSuppliers: []string{"Digi-Key", "Mouser"},
		Mode:              "fast",
	})
	require.NoError(t, err)

	require.Len(t, gen.calls, 1)
	assert.Equal(t, generation.TemplateSupplierEvaluation, gen.calls[0].Template)
	assert.Equal(t, generation.TokensSupplierEvaluation, gen.calls[0].MaxTokens)
	assert.Equal(t, "fast", gen.calls[0].Mode)

	assert.Equal(t, SourceGenerated, got.Source)
	assert.NotContains(t, names(got.Comparison), "Bogus Parts")
	assert.Len(t, got.Comparison, 5)

	top := got.Comparison[0]
	assert.Equal(t, "Digi-Key", top.Name)
	assert.Equal(t, 95, top.CostScore)
	assert.Equal(t, 92, top.OverallScore)
	assert.Equal(t, "Microchip", top.Manufacturer)
	assert.Equal(t, "https://www.digikey.com/en/products/search?keywords=ATMEGA328P", top.OrderLink)
	assert.Equal(t, "Digi-Key achieved the highest overall score (92) among 5 evaluated suppliers. Authorized stock with fast shipping.", got.RecommendationReason)
	assert.Equal(t, "Watch for counterfeit risk.", got.ComponentInsights)
	assert.Equal(t, 1, recommendedCount(got.Comparison))
}

func TestEvaluateFallsBackOnGenerationFailure(t *testing.T) {
	tests := []struct {
		name       string
		completion generation.Completion
	}{
		{"exhausted", generation.Completion{State: generation.StateExhausted, Err: errors.NewTimeoutError("timed out", nil)}},
		{"not json", generation.Completion{State: generation.StateSuccess, Text: "I cannot help with that."}},
		{"no known suppliers", generation.Completion{State: generation.StateSuccess, Text: `{"comparison":[{"name":"Nobody"}]}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(DefaultRanker(), nil, &stubGenerator{completion: tt.completion}, nil, nil)
			got, err := e.Evaluate(context.Background(), types.SupplierEvaluationRequest{
				PartNumber:        "LM358",
				SelectedSuppliers: []string{"Mouser"},
			})
			require.NoError(t, err)
			assert.Equal(t, SourceFallback, got.Source)
			assert.Len(t, got.Comparison, 5)
			assert.Equal(t, 1, recommendedCount(got.Comparison))
		})
	}
}

func TestEvaluateIsDeterministicWithoutGeneration(t *testing.T) {
	e := NewEvaluator(DefaultRanker(), nil, nil, nil, nil)
	req := types.SupplierEvaluationRequest{PartNumber: "SN74HC595N"}

	first, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	second, err := e.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEvaluateRequiresPartNumber(t *testing.T) {
	e := NewEvaluator(nil, nil, nil, nil, nil)
	_, err := e.Evaluate(context.Background(), types.SupplierEvaluationRequest{PartNumber: "  "})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryValidation, errors.CategoryOf(err))
}

func TestEvaluateWithoutCandidates(t *testing.T) {
	tables := DefaultTables()
	tables.Backfill = nil
	tables.DefaultBackfill = nil
	e := NewEvaluator(NewRanker(tables, nil), nil, nil, nil, nil)

	_, err := e.Evaluate(context.Background(), types.SupplierEvaluationRequest{PartNumber: "XYZ-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No suppliers found for evaluation")
}

func TestLoadTablesOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suppliers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_backfill: [Local Broker]\n"), 0o600))

	tables, err := LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Local Broker"}, tables.DefaultBackfill)
	assert.Len(t, tables.Profiles, 8)

	_, err = LoadTables(filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, errors.CategoryConfiguration, errors.CategoryOf(err))
}
