// Package evidence merges locally computed risk statistics with already fetched news and market
// signals into the bundle used as generation context.
package evidence

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/classify"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/risk"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/tabular"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

// MaxDisruptionNews bounds the disruption headlines folded into a bundle.
const MaxDisruptionNews = 10

// Input is everything a bundle is built from. KPIText is the raw KPI payload, kept so that
// unstructured KPI notes still reach the prompt.
type Input struct {
	BOM       tabular.RowSet
	KPI       tabular.RowSet
	KPIText   string
	News      []types.Headline
	Market    types.MarketIndicators
	OpenText  string
	UserInput map[string]string
}

// BOMSummary holds the BOM statistics.
type BOMSummary struct {
	ComponentCount    int      `json:"componentCount"`
	TotalCost         float64  `json:"totalCost"`
	Suppliers         []string `json:"suppliers"`
	Manufacturers     []string `json:"manufacturers"`
	EstimatedLeadTime int      `json:"estimatedLeadTime"`
}

// Summary renders the one-line BOM summary.
func (s BOMSummary) Summary() string {
	if s.ComponentCount == 0 {
		return "No BOM data provided."
	}
	return fmt.Sprintf("BOM Analysis: %d components, $%.2f total cost, %d suppliers, %d manufacturers, estimated lead time: %d days.",
		s.ComponentCount, s.TotalCost, len(s.Suppliers), len(s.Manufacturers), s.EstimatedLeadTime)
}

// KPISummary describes the KPI history.
type KPISummary struct {
	Records     int      `json:"records"`
	Metrics     []string `json:"metrics"`
	DateColumns []string `json:"dateColumns"`
	Insights    []string `json:"insights"`
	Summary     string   `json:"summary"`
	Sample      string   `json:"sample"`
}

// CategoryIntel is the per-category slice of the component intelligence report.
type CategoryIntel struct {
	Category  string         `json:"category"`
	Count     int            `json:"count"`
	RiskLevel classify.Level `json:"riskLevel"`
	LeadTime  string         `json:"leadTime"`
}

// SupplierDependency describes how much of the BOM depends on one supplier.
type SupplierDependency struct {
	Supplier      string  `json:"supplier"`
	Components    int     `json:"components"`
	Manufacturers int     `json:"manufacturers"`
	TotalValue    float64 `json:"totalValue"`
	Risk          string  `json:"dependencyRisk"`
}

// CostBucket counts components whose unit cost falls in a range.
type CostBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// HighValueComponent is a component with unit cost above HighValueThreshold.
type HighValueComponent struct {
	Part         string  `json:"part"`
	Manufacturer string  `json:"manufacturer"`
	UnitCost     float64 `json:"unitCost"`
	Extended     float64 `json:"extended"`
}

// HighValueThreshold is the unit cost above which a component is reported as high value.
const HighValueThreshold = 50.0

// CostProfile holds the cost distribution of the BOM.
type CostProfile struct {
	Total        float64              `json:"total"`
	Distribution []CostBucket         `json:"distribution"`
	HighValue    []HighValueComponent `json:"highValue"`
}

// Bundle is the immutable generation context for one request.
type Bundle struct {
	BOM            BOMSummary             `json:"bom"`
	KPI            KPISummary             `json:"kpi"`
	Risk           risk.Assessment        `json:"risk"`
	Categories     []CategoryIntel        `json:"categories"`
	Dependencies   []SupplierDependency   `json:"dependencies"`
	Costs          CostProfile            `json:"costs"`
	News           []types.Headline       `json:"news"`
	Market         types.MarketIndicators `json:"market"`
	Planning       PlanningContext        `json:"planning"`
	OpenText       string                 `json:"openText"`
	HighlightTerms []string               `json:"highlightTerms"`
	Limited        bool                   `json:"limited"`

	bomRows tabular.RowSet
}

// BOMRows returns the BOM rows the bundle was built from.
func (b Bundle) BOMRows() tabular.RowSet { return b.bomRows }

// Aggregator builds bundles from read-only tables.
type Aggregator struct {
	tables     Tables
	classifier *classify.Classifier
	scorer     *risk.Scorer
}

// NewAggregator wires the aggregator to its classifier and scorer.
func NewAggregator(tables Tables, classifier *classify.Classifier, scorer *risk.Scorer) *Aggregator {
	if classifier == nil {
		classifier = classify.Default()
	}
	if scorer == nil {
		scorer = risk.NewScorer(classifier)
	}
	return &Aggregator{tables: tables, classifier: classifier, scorer: scorer}
}

// Classifier exposes the classifier the aggregator uses.
func (a *Aggregator) Classifier() *classify.Classifier { return a.classifier }

// Build summarizes the input. Missing BOM or KPI data produce a Limited bundle, never an error.
func (a *Aggregator) Build(in Input) Bundle {
	scoreRows := in.KPI
	if scoreRows.Empty() {
		scoreRows = in.BOM
	}

	b := Bundle{
		BOM:            a.summarizeBOM(in.BOM),
		KPI:            a.SummarizeKPI(in.KPI, in.KPIText),
		Risk:           a.scorer.Score(scoreRows),
		Categories:     a.categoryIntel(in.BOM),
		Dependencies:   a.dependencies(in.BOM),
		Costs:          costProfile(in.BOM),
		News:           a.FilterDisruptions(in.News),
		Market:         in.Market,
		Planning:       NewPlanningContext(in.UserInput),
		OpenText:       strings.TrimSpace(in.OpenText),
		HighlightTerms: HighlightTerms(in.OpenText),
		Limited:        in.BOM.Empty(),
		bomRows:        in.BOM,
	}
	return b
}

func (a *Aggregator) summarizeBOM(rs tabular.RowSet) BOMSummary {
	s := BOMSummary{ComponentCount: rs.Len(), Suppliers: []string{}, Manufacturers: []string{}}
	seenSupplier := make(map[string]bool)
	seenManufacturer := make(map[string]bool)

	for _, row := range rs.Rows {
		s.TotalCost += lineTotal(row)

		if supplier, ok := row.Lookup(tabular.SupplierColumns...); ok && !seenSupplier[supplier] {
			seenSupplier[supplier] = true
			s.Suppliers = append(s.Suppliers, supplier)
		}
		if mfr, ok := row.Lookup(tabular.ManufacturerColumns...); ok && !seenManufacturer[mfr] {
			seenManufacturer[mfr] = true
			s.Manufacturers = append(s.Manufacturers, mfr)
		}
		if lt := a.EstimateLeadTime(row); lt > s.EstimatedLeadTime {
			s.EstimatedLeadTime = lt
		}
	}
	return s
}

// lineTotal uses the Total column, falling back to unit cost times quantity.
func lineTotal(row tabular.Row) float64 {
	if total := row.Float(0, tabular.TotalColumns...); total != 0 {
		return total
	}
	return row.Float(0, tabular.UnitCostColumns...) * row.Float(1, tabular.QuantityColumns...)
}

var leadTimeNumber = regexp.MustCompile(`\d+`)

// EstimateLeadTime returns the row's lead time in days: an explicit lead-time column first, then
// the known-supplier table, then the default.
func (a *Aggregator) EstimateLeadTime(row tabular.Row) int {
	for _, col := range tabular.LeadTimeColumns {
		raw := strings.TrimSpace(row[col])
		switch strings.ToLower(raw) {
		case "", "n/a", "na", "none", "tbd":
			continue
		}
		if m := leadTimeNumber.FindString(raw); m != "" {
			if days, err := strconv.Atoi(m); err == nil && days > 0 {
				return days
			}
		}
	}
	return a.SupplierLeadTime(row.String("", tabular.SupplierColumns...))
}

// SupplierLeadTime looks a supplier up in the lead-time table.
func (a *Aggregator) SupplierLeadTime(supplier string) int {
	name := strings.ToLower(strings.TrimSpace(supplier))
	if name != "" {
		for _, s := range a.tables.SupplierLeadTimes {
			if strings.Contains(name, s.Name) || strings.Contains(s.Name, name) {
				return s.Days
			}
		}
	}
	return a.tables.DefaultLeadTimeDays
}

// SummarizeKPI detects metric and date columns and renders a three-row sample.
func (a *Aggregator) SummarizeKPI(rs tabular.RowSet, raw string) KPISummary {
	raw = strings.TrimSpace(raw)
	if rs.Empty() {
		if raw == "" {
			return KPISummary{Summary: "No KPI data provided", Insights: []string{}}
		}
		return KPISummary{
			Summary:  "KPI data provided as text",
			Sample:   raw,
			Insights: []string{"Historical performance data available for analysis"},
		}
	}

	s := KPISummary{Records: rs.Len(), Metrics: []string{}, DateColumns: []string{}, Insights: []string{}}
	for _, col := range rs.Columns {
		norm := strings.ReplaceAll(strings.ToLower(col), " ", "_")
		for _, metric := range a.tables.KPIMetrics {
			if strings.Contains(norm, metric) {
				s.Metrics = append(s.Metrics, col)
				break
			}
		}
		for _, marker := range a.tables.KPIDateMarkers {
			if strings.Contains(strings.ToLower(col), marker) {
				s.DateColumns = append(s.DateColumns, col)
				break
			}
		}
	}

	if len(s.Metrics) > 0 {
		s.Insights = append(s.Insights, "Key performance metrics tracked: "+strings.Join(head(s.Metrics, 5), ", "))
	}
	if s.Records > 1 {
		s.Insights = append(s.Insights, fmt.Sprintf("%d historical data points available for trend analysis", s.Records))
	}
	if len(s.DateColumns) > 0 {
		s.Insights = append(s.Insights, "Temporal data available in columns: "+strings.Join(head(s.DateColumns, 3), ", "))
	}

	s.Sample = rs.Markdown(3)
	if s.Records > 3 {
		s.Sample += fmt.Sprintf("\n[Showing first 3 of %d records]", s.Records)
	}

	s.Summary = fmt.Sprintf("%d KPI records with %d metrics tracked", s.Records, len(rs.Columns))
	if len(s.Metrics) > 0 {
		s.Summary += fmt.Sprintf(" (key metrics: %s)", strings.Join(head(s.Metrics, 3), ", "))
	}
	return s
}

func (a *Aggregator) categoryIntel(rs tabular.RowSet) []CategoryIntel {
	counts := make(map[string]int)
	for _, row := range rs.Rows {
		counts[a.classifier.Classify(row.String("", tabular.DescriptionColumns...))]++
	}

	out := make([]CategoryIntel, 0, len(counts))
	for _, cat := range a.classifier.Categories() {
		n, ok := counts[cat]
		if !ok {
			continue
		}
		out = append(out, CategoryIntel{
			Category:  cat,
			Count:     n,
			RiskLevel: a.classifier.RiskLevel(cat, n),
			LeadTime:  a.classifier.LeadTimeExpectation(cat),
		})
	}
	return out
}

func (a *Aggregator) dependencies(rs tabular.RowSet) []SupplierDependency {
	type acc struct {
		components    int
		manufacturers map[string]bool
		value         float64
	}
	bySupplier := make(map[string]*acc)
	order := make([]string, 0)

	for _, row := range rs.Rows {
		supplier, ok := row.Lookup(tabular.SupplierColumns...)
		if !ok {
			continue
		}
		d, exists := bySupplier[supplier]
		if !exists {
			d = &acc{manufacturers: make(map[string]bool)}
			bySupplier[supplier] = d
			order = append(order, supplier)
		}
		d.components++
		if mfr, ok := row.Lookup(tabular.ManufacturerColumns...); ok {
			d.manufacturers[mfr] = true
		}
		d.value += unitCost(row) * quantity(row)
	}

	out := make([]SupplierDependency, 0, len(order))
	for _, name := range order {
		d := bySupplier[name]
		level := "Low"
		switch {
		case d.components > 3:
			level = "High"
		case d.components > 1:
			level = "Medium"
		}
		out = append(out, SupplierDependency{
			Supplier:      name,
			Components:    d.components,
			Manufacturers: len(d.manufacturers),
			TotalValue:    d.value,
			Risk:          level,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalValue > out[j].TotalValue })
	return head(out, 5)
}

func costProfile(rs tabular.RowSet) CostProfile {
	p := CostProfile{
		Distribution: []CostBucket{{Label: "<$1"}, {Label: "$1-$10"}, {Label: "$10-$100"}, {Label: ">$100"}},
		HighValue:    []HighValueComponent{},
	}

	for _, row := range rs.Rows {
		raw, ok := row.Lookup(costColumns...)
		if !ok {
			continue
		}
		cost, ok := tabular.ParseNumber(raw)
		if !ok {
			continue
		}
		extended := cost * quantity(row)
		p.Total += extended

		switch {
		case cost < 1:
			p.Distribution[0].Count++
		case cost < 10:
			p.Distribution[1].Count++
		case cost < 100:
			p.Distribution[2].Count++
		default:
			p.Distribution[3].Count++
		}

		if cost > HighValueThreshold {
			p.HighValue = append(p.HighValue, HighValueComponent{
				Part:         row.String("N/A", tabular.PartNumberColumns...),
				Manufacturer: row.String("N/A", tabular.ManufacturerColumns...),
				UnitCost:     cost,
				Extended:     extended,
			})
		}
	}

	sort.SliceStable(p.HighValue, func(i, j int) bool { return p.HighValue[i].Extended > p.HighValue[j].Extended })
	p.HighValue = head(p.HighValue, 3)
	return p
}

func unitCost(row tabular.Row) float64 {
	return row.Float(0, tabular.UnitCostColumns...)
}

// quantity accepts whole numbers only; anything else counts as one unit.
func quantity(row tabular.Row) float64 {
	raw, ok := row.Lookup(tabular.QuantityColumns...)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 1
	}
	return float64(n)
}

// HighlightTerms returns the open-text words longer than three characters, lowercased and unique.
func HighlightTerms(openText string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, w := range strings.Fields(openText) {
		w = strings.ToLower(strings.Trim(w, ".,;:!?\"'()[]{}"))
		if len(w) > 3 && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

func head[T any](xs []T, n int) []T {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}
