package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/evidence"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/fn"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/generation"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/probability"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/risk"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/tabular"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

// Banner HTML prepended to the disruption table.
const (
	bannerIntelligence = `<div class="banner banner-intelligence">Current Supply Chain Intelligence: Recent market conditions and disruption factors have been analyzed</div>`
	bannerLimited      = `<div class="banner banner-warning"><strong>Limited Analysis:</strong> This analysis is based only on the additional information provided, without BOM data. ` +
		`For comprehensive disruption analysis including component-specific risks, costs, and supplier intelligence, please upload a BOM file.</div>`
)

// DisruptionAnalysis generates the scenario table for a BOM and KPI history
func (s *Service) DisruptionAnalysis(ctx context.Context, req types.DisruptionAnalysisRequest) (string, error) {
	start := time.Now()
	news, market := s.gatherEvidence(ctx, "")
	b := s.bundle(evidence.Input{News: news, Market: market, OpenText: req.OpenText.String()}, req.BOM.String(), req.KPI.String())
	s.logAnalysis(generation.TemplateDisruptionAnalysis, b, start)

	data := generation.DisruptionAnalysisData{
		Limited:      b.Limited,
		Disruptions:  b.NewsReport(),
		Market:       b.MarketReport(),
		RiskReport:   b.RiskReport(probability.ScenarioGeneral),
		Intelligence: b.IntelligenceReport(),
		CostReport:   b.CostReport(),
		BOMTable:     b.BOMRows().Markdown(0),
		KPISummary:   b.KPI.Summary,
		KPITable:     b.KPI.Sample,
		OpenText:     b.OpenText,
	}
	if !b.Limited {
		data.BOMSummary = b.BOM.Summary()
	}

	text, err := s.generate(ctx, generation.Call{
		Template:  generation.TemplateDisruptionAnalysis,
		Data:      data,
		MaxTokens: generation.TokensDisruptionAnalysis,
		Mode:      req.Mode,
	})
	if err != nil {
		return "", err
	}

	table := generation.MarkdownToHTML(text)
	if len(b.HighlightTerms) > 0 {
		table = generation.HighlightRows(table, b.HighlightTerms)
	}
	return disruptionBanners(b) + generation.EnsureExternalLinks(table), nil
}

func disruptionBanners(b evidence.Bundle) string {
	var sb strings.Builder
	if len(b.News) > 0 {
		sb.WriteString(bannerIntelligence)
	}
	if b.Limited {
		sb.WriteString(bannerLimited)
		return sb.String()
	}
	fmt.Fprintf(&sb, `<div class="banner banner-bom">%s</div>`, b.BOM.Summary())
	fmt.Fprintf(&sb, `<div class="banner banner-components">Component Intelligence: %d components analyzed for supply chain risks</div>`, b.BOM.ComponentCount)
	sb.WriteString(`<div class="banner banner-costs">Cost &amp; Lead Time Analysis: BOM cost structure and lead time risks assessed</div>`)
	return sb.String()
}

// Explanation is a rendered scenario explanation and the headlines it is allowed to cite.
type Explanation struct {
	Result   string           `json:"result"`
	Evidence []types.Headline `json:"evidence"`
}

// ExplainScenario explains one scenario. Supporting links come only from fetched headlines that
// pass the relevance filter.
func (s *Service) ExplainScenario(ctx context.Context, req types.DisruptionExplainRequest) (Explanation, error) {
	start := time.Now()
	description := strings.TrimSpace(req.ScenarioDescription)
	if description == "" {
		return Explanation{}, apperrors.NewValidationError("scenarioDescription is required")
	}
	affected := req.AffectedComponents.String()

	entities := s.aggregator.ExtractEntities(description)
	queries := s.aggregator.SearchTerms(description, affected, entities)
	relevant := s.aggregator.RelevantNews(s.searchHeadlines(ctx, queries), description, entities)

	b := s.bundle(evidence.Input{OpenText: req.OpenText.String()}, req.BOM.String(), req.KPI.String())
	s.logAnalysis(generation.TemplateScenarioExplain, b, start)

	scenario := probability.ScenarioFromDisruption(s.aggregator.Classifier().DisruptionType(description))
	text, err := s.generate(ctx, generation.Call{
		Template: generation.TemplateScenarioExplain,
		Data: generation.ScenarioExplainData{
			ScenarioID:         req.ScenarioID,
			Description:        description,
			AffectedComponents: affected,
			PossibleDelay:      req.PossibleDelay.String(),
			Probability:        req.Probability.String(),
			Details:            req.ExplainableDetails.String(),
			BOMComponents:      b.ComponentList(),
			KPISummary:         b.KPI.Summary,
			KPITable:           b.KPI.Sample,
			OpenText:           b.OpenText,
			RiskReport:         b.RiskReport(scenario),
			Evidence:           evidenceSection(relevant),
		},
		MaxTokens: generation.TokensScenarioExplain,
		Mode:      req.Mode,
	})
	if err != nil {
		return Explanation{}, err
	}

	allowed := make([]string, 0, len(relevant))
	for _, h := range relevant {
		allowed = append(allowed, h.URL)
	}
	return Explanation{
		Result:   generation.UnlinkUnlisted(generation.RenderHTML(text), allowed),
		Evidence: relevant,
	}, nil
}

// evidenceSection renders the validated headlines for the prompt, cross-referenced events first
func evidenceSection(items []types.Headline) string {
	if len(items) == 0 {
		return "REAL-WORLD SUPPORTING INFORMATION:\n" +
			"No directly related news articles found in recent supply chain news feeds. " +
			"This may indicate the scenario is based on emerging trends or specific BOM vulnerabilities."
	}

	var sb strings.Builder
	sb.WriteString("REAL-WORLD SUPPORTING INFORMATION (VALIDATED FROM MULTIPLE SOURCES):\n")
	sb.WriteString("Only the articles below may be cited. Do not add links that are not listed here.\n\n")

	groups := evidence.CrossReference(items)
	crossReferenced := 0
	var single []types.Headline
	for _, g := range groups {
		if len(g.Items) < 2 {
			single = append(single, g.Items...)
			continue
		}
		crossReferenced++
		fmt.Fprintf(&sb, "**CROSS-REFERENCED EVENT** (Reported by %d sources):\n", len(g.Items))
		writeHeadlines(&sb, g.Items)
	}
	if len(single) > 0 {
		sb.WriteString("**ADDITIONAL SUPPORTING SOURCES:**\n")
		writeHeadlines(&sb, single)
	}

	sources := make(map[string]bool)
	for _, item := range items {
		sources[strings.ToLower(item.Source)] = true
	}
	fmt.Fprintf(&sb, "**CROSS-REFERENCE SUMMARY:** %d articles from %d different sources. %d events confirmed by multiple independent sources.",
		len(items), len(sources), crossReferenced)
	return sb.String()
}

func writeHeadlines(sb *strings.Builder, items []types.Headline) {
	for i, item := range items {
		fmt.Fprintf(sb, "  %d. [%s](%s)\n", i+1, item.Title, item.URL)
		fmt.Fprintf(sb, "     - Source: %s | Published: %s\n", item.Source, item.PublishedDate())
	}
	sb.WriteString("\n")
}

// MitigationPlan generates a phased plan for one recommendation
func (s *Service) MitigationPlan(ctx context.Context, req types.MitigationPlanRequest) (string, error) {
	start := time.Now()
	recommendation := strings.TrimSpace(req.Recommendation)
	if recommendation == "" {
		return "", apperrors.NewValidationError("recommendation is required")
	}

	b := s.bundle(evidence.Input{OpenText: req.OpenText.String(), UserInput: flexMap(req.UserInput)}, req.BOM.String(), req.KPI.String())
	s.logAnalysis(generation.TemplateMitigationPlan, b, start)

	affected := req.AffectedComponents.String()
	var kpiInsights string
	if b.KPI.Records > 0 || b.KPI.Sample != "" {
		kpiInsights = strings.TrimSpace(b.KPI.Summary + "\n" + b.KPI.Sample)
	}

	var planningContext string
	if !b.Planning.Empty() {
		planningContext = b.Planning.Labelled()
	}

	text, err := s.generate(ctx, generation.Call{
		Template: generation.TemplateMitigationPlan,
		Data: generation.MitigationPlanData{
			ScenarioID:          req.ScenarioID,
			Description:         req.ScenarioDescription.String(),
			AffectedComponents:  affected,
			Recommendation:      recommendation,
			PossibleDelay:       req.PossibleDelay.String(),
			Probability:         req.Probability.String(),
			ScenarioExplanation: req.ScenarioExplanation.String(),
			BOMComponents:       componentLines(b.BOMRows()),
			AffectedDetails:     affectedDetails(b.BOMRows(), affected),
			KPIInsights:         kpiInsights,
			OpenText:            b.OpenText,
			PlanningContext:     planningContext,
			PlanningSummary:     b.Planning.Summary(),
		},
		MaxTokens: generation.TokensMitigationPlan,
		Mode:      req.Mode,
	})
	if err != nil {
		return "", err
	}
	return generation.EnsureExternalLinks(generation.RenderHTML(text)), nil
}

// componentLines lists every BOM row with supplier and quantity
func componentLines(rs tabular.RowSet) string {
	var sb strings.Builder
	for _, row := range rs.Rows {
		fmt.Fprintf(&sb, "- %s (%s) from %s, Supplier: %s, Cost: $%s, Qty: %s\n",
			row.String("N/A", tabular.PartNumberColumns...),
			row.String("N/A", tabular.DescriptionColumns...),
			row.String("N/A", tabular.ManufacturerColumns...),
			row.String("N/A", tabular.SupplierColumns...),
			row.String("N/A", append(append([]string{}, tabular.UnitCostColumns...), tabular.TotalColumns...)...),
			row.String("N/A", tabular.QuantityColumns...))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// affectedDetails describes the BOM rows whose part number, description, manufacturer or supplier
// is mentioned in the affected components text
func affectedDetails(rs tabular.RowSet, affected string) string {
	if affected == "" {
		return ""
	}

	var sb strings.Builder
	for _, row := range rs.Rows {
		part := row.String("", tabular.PartNumberColumns...)
		desc := row.String("", tabular.DescriptionColumns...)
		mfr := row.String("", tabular.ManufacturerColumns...)
		supplier := row.String("", tabular.SupplierColumns...)
		if !mentions(affected, part, desc, mfr, supplier) {
			continue
		}

		unit, hasUnit := row.Lookup(tabular.UnitCostColumns...)
		qty, hasQty := row.Lookup(tabular.QuantityColumns...)
		extended := "N/A"
		if hasUnit && hasQty {
			u, okU := tabular.ParseNumber(unit)
			q, okQ := tabular.ParseNumber(qty)
			if okU && okQ {
				extended = fmt.Sprintf("%.2f", u*q)
			}
		}

		fmt.Fprintf(&sb, "- **%s**: %s\n", orNA(part), orNA(desc))
		fmt.Fprintf(&sb, "  - Manufacturer: %s\n", orNA(mfr))
		fmt.Fprintf(&sb, "  - Current Supplier: %s\n", orNA(supplier))
		fmt.Fprintf(&sb, "  - Unit Cost: $%s\n", orNA(unit))
		fmt.Fprintf(&sb, "  - Quantity Needed: %s\n", orNA(qty))
		fmt.Fprintf(&sb, "  - Extended Cost: $%s\n", extended)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func mentions(text string, values ...string) bool {
	for _, v := range values {
		if v != "" && strings.Contains(text, v) {
			return true
		}
	}
	return false
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// RiskScore is the deterministic assessment of a BOM and KPI history.
type RiskScore struct {
	Assessment  risk.Assessment          `json:"assessment"`
	Probability probability.Estimate     `json:"probability"`
	BOM         evidence.BOMSummary      `json:"bom"`
	Categories  []evidence.CategoryIntel `json:"categories"`
	Limited     bool                     `json:"limited"`
}

// RiskScore scores the tables without any external call
func (s *Service) RiskScore(req types.RiskScoreRequest) RiskScore {
	start := time.Now()
	b := s.bundle(evidence.Input{}, req.BOM.String(), req.KPI.String())
	s.logAnalysis("risk-score", b, start)

	return RiskScore{
		Assessment:  b.Risk,
		Probability: probability.ToProbability(b.Risk.Overall, probability.ParseScenarioType(req.ScenarioType)),
		BOM:         b.BOM,
		Categories:  b.Categories,
		Limited:     b.Limited,
	}
}

// ScenarioProbability pairs the local estimate with the generated research narrative. The local
// estimate is authoritative; the research is advisory text only.
type ScenarioProbability struct {
	Estimate          probability.Estimate           `json:"estimate"`
	Research          generation.ProbabilityResearch `json:"research"`
	ResearchAvailable bool                           `json:"researchAvailable"`
}

// ScenarioProbability estimates how likely a scenario is
func (s *Service) ScenarioProbability(ctx context.Context, req types.ScenarioProbabilityRequest) (ScenarioProbability, error) {
	start := time.Now()
	description := strings.TrimSpace(req.ScenarioDescription)
	if description == "" {
		return ScenarioProbability{}, apperrors.NewValidationError("scenarioDescription is required")
	}

	scenario := probability.ParseScenarioType(req.ScenarioType)
	if strings.TrimSpace(req.ScenarioType) == "" {
		cause := req.RootCause
		if strings.TrimSpace(cause) == "" {
			cause = s.aggregator.Classifier().DisruptionType(description)
		}
		scenario = probability.ScenarioFromDisruption(cause)
	}

	news, market := s.gatherEvidence(ctx, description)
	b := s.bundle(evidence.Input{News: news, Market: market}, req.BOM.String(), req.KPI.String())
	s.logAnalysis(generation.TemplateScenarioProbability, b, start)

	out := ScenarioProbability{Estimate: probability.ToProbability(b.Risk.Overall, scenario)}

	research := s.research(ctx, req, news, b)
	out.ResearchAvailable = research.IsOk()
	out.Research = fn.WithConservativeDefault(research,
		generation.FallbackProbabilityResearch("Market research unavailable; using conservative estimate"),
		func(err error) {
			s.metrics.IncrementFallback()
			s.logger.FallbackLogger("scenario-probability", err.Error())
		})
	return out, nil
}

func (s *Service) research(ctx context.Context, req types.ScenarioProbabilityRequest, news []types.Headline, b evidence.Bundle) fn.Result[generation.ProbabilityResearch] {
	rootCause := req.RootCause
	if rootCause == "" {
		rootCause = "Not specified"
	}
	text, err := s.generate(ctx, generation.Call{
		Template: generation.TemplateScenarioProbability,
		Data: generation.ScenarioProbabilityData{
			Description:        strings.TrimSpace(req.ScenarioDescription),
			RootCause:          rootCause,
			AffectedComponents: req.AffectedComponents.String(),
			Headlines:          news,
			Disruptions:        b.News,
			Market:             b.MarketReport(),
		},
		MaxTokens: generation.TokensScenarioProbability,
		Mode:      req.Mode,
	})
	if err != nil {
		return fn.Err[generation.ProbabilityResearch](err)
	}
	return fn.FromPair(generation.ParseProbabilityResearch(text))
}
