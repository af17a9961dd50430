package evidence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/probability"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/tabular"
)

var costColumns = append(append([]string{}, tabular.UnitCostColumns...), tabular.TotalColumns...)

// The report methods render bundle sections as plain text for prompt templates.

// IntelligenceReport lists category risk levels and the top supplier dependencies.
func (b Bundle) IntelligenceReport() string {
	if b.Limited {
		return "No BOM data available for component intelligence."
	}

	var sb strings.Builder
	sb.WriteString("COMPONENT TYPE ANALYSIS:\n")
	for _, c := range b.Categories {
		fmt.Fprintf(&sb, "- %s: %d components, Risk Level: %s\n", c.Category, c.Count, c.RiskLevel)
	}
	sb.WriteString("\nSUPPLIER DEPENDENCY ANALYSIS:\n")
	for _, d := range b.Dependencies {
		fmt.Fprintf(&sb, "- %s: %d components, %d manufacturers, Dependency Risk: %s\n", d.Supplier, d.Components, d.Manufacturers, d.Risk)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// CostReport renders the cost distribution, high value parts and category lead times.
func (b Bundle) CostReport() string {
	if b.Limited {
		return "No BOM data available for lead time and cost analysis."
	}

	var sb strings.Builder
	sb.WriteString("COST ANALYSIS:\n")
	fmt.Fprintf(&sb, "- Total BOM Cost: $%.2f\n", b.Costs.Total)
	parts := make([]string, 0, len(b.Costs.Distribution))
	for _, bucket := range b.Costs.Distribution {
		parts = append(parts, fmt.Sprintf("%s: %d", bucket.Label, bucket.Count))
	}
	fmt.Fprintf(&sb, "- Cost Distribution: %s\n", strings.Join(parts, ", "))

	if len(b.Costs.HighValue) > 0 {
		fmt.Fprintf(&sb, "- High-Value Components (%d items):\n", len(b.Costs.HighValue))
		for _, c := range b.Costs.HighValue {
			fmt.Fprintf(&sb, "  * %s: $%.2f each ($%.2f total)\n", c.Part, c.UnitCost, c.Extended)
		}
	}

	sb.WriteString("\nLEAD TIME RISK ASSESSMENT:\n")
	if len(b.Categories) == 0 {
		sb.WriteString("- General components: 4-16 weeks (medium risk)\n")
	}
	cats := append([]CategoryIntel(nil), b.Categories...)
	sort.Slice(cats, func(i, j int) bool { return cats[i].Category < cats[j].Category })
	for _, c := range cats {
		fmt.Fprintf(&sb, "- %s: %s\n", c.Category, c.LeadTime)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// NewsReport numbers the disruption headlines with their category, source and URL.
func (b Bundle) NewsReport() string {
	if len(b.News) == 0 {
		return "No current supply chain disruptions detected in recent news feeds."
	}

	var sb strings.Builder
	for i, n := range b.News {
		fmt.Fprintf(&sb, "%d. **%s**: %s\n", i+1, n.Category, n.Title)
		fmt.Fprintf(&sb, "   Source: %s | Published: %s\n", n.Source, n.PublishedDate())
		fmt.Fprintf(&sb, "   URL: %s\n\n", n.URL)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// MarketReport lists market indicator values in name order along with data source status.
func (b Bundle) MarketReport() string {
	if b.Market.Empty() {
		return "Market indicators unavailable; analysis relies on historical patterns."
	}

	names := make([]string, 0, len(b.Market.Values))
	for name := range b.Market.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("REAL-TIME MARKET INDICATORS:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  - %s: %.4g\n", name, b.Market.Values[name])
	}
	if len(b.Market.Status) > 0 {
		sb.WriteString("DATA SOURCE STATUS:\n")
		sources := make([]string, 0, len(b.Market.Status))
		for s := range b.Market.Status {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		for _, s := range sources {
			fmt.Fprintf(&sb, "  %s - %s\n", b.Market.Status[s], s)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RiskReport renders the historical risk assessment and probability for a scenario type.
func (b Bundle) RiskReport(scenario probability.ScenarioType) string {
	est := probability.ToProbability(b.Risk.Overall, scenario)
	rf := b.Risk.RiskFactors

	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall historical risk score: %.3f\n", b.Risk.Overall)
	fmt.Fprintf(&sb, "Baseline disruption probability (%s): %.1f%% (%s)\n", est.Scenario, est.Percentage, est.Band)
	if len(rf.HighRiskSuppliers) > 0 {
		fmt.Fprintf(&sb, "High-risk suppliers: %s\n", strings.Join(rf.HighRiskSuppliers, ", "))
	}
	if len(rf.MediumRiskSuppliers) > 0 {
		fmt.Fprintf(&sb, "Medium-risk suppliers: %s\n", strings.Join(rf.MediumRiskSuppliers, ", "))
	}
	if len(rf.HighRiskCategories) > 0 {
		fmt.Fprintf(&sb, "High-risk categories: %s\n", strings.Join(rf.HighRiskCategories, ", "))
	}
	if len(b.Risk.Rows) > 0 {
		fmt.Fprintf(&sb, "Average on-time delivery: %.1f%%, defect rate: %.2f%%, lead time: %.1f days\n",
			rf.AvgOnTimeDelivery, rf.AvgDefectRate, rf.AvgLeadTimeDays)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ComponentList renders one line per BOM row for explanation and planning prompts.
func (b Bundle) ComponentList() string {
	if b.bomRows.Empty() {
		return ""
	}
	var sb strings.Builder
	for _, row := range b.bomRows.Rows {
		fmt.Fprintf(&sb, "- %s (%s) from %s, Cost: $%s\n",
			row.String("N/A", tabular.PartNumberColumns...),
			row.String("N/A", tabular.DescriptionColumns...),
			row.String("N/A", tabular.ManufacturerColumns...),
			row.String("N/A", costColumns...))
	}
	return strings.TrimRight(sb.String(), "\n")
}
