// Package probability converts composite risk scores into bounded disruption probabilities.
package probability

import (
	"math"
	"strings"
)

// ScenarioType selects the frequency multiplier applied to the base probability.
type ScenarioType string

const (
	ScenarioGeneral         ScenarioType = "general"
	ScenarioGeopolitical    ScenarioType = "geopolitical"
	ScenarioNaturalDisaster ScenarioType = "natural_disaster"
	ScenarioSupplierIssue   ScenarioType = "supplier_issue"
	ScenarioMarketDemand    ScenarioType = "market_demand"
	ScenarioTransportation  ScenarioType = "transportation"
	ScenarioQuality         ScenarioType = "quality"
)

// Band is the qualitative probability band.
type Band string

const (
	BandLow        Band = "Low"
	BandLowMedium  Band = "Low-Medium"
	BandMedium     Band = "Medium"
	BandMediumHigh Band = "Medium-High"
	BandHigh       Band = "High"
)

// MaxPercentage caps every estimate.
const MaxPercentage = 50.0

var multipliers = map[ScenarioType]float64{
	ScenarioGeopolitical:    0.7,
	ScenarioNaturalDisaster: 0.6,
	ScenarioSupplierIssue:   1.2,
	ScenarioMarketDemand:    1.1,
	ScenarioTransportation:  1.0,
	ScenarioQuality:         1.3,
	ScenarioGeneral:         1.0,
}

// bracket is one piece of the score to percentage mapping: pct = offset + (score-lower)*slope.
type bracket struct {
	upper  float64
	lower  float64
	offset float64
	slope  float64
	band   Band
}

var brackets = []bracket{
	{upper: 0.15, lower: 0, offset: 5, slope: 40, band: BandLow},
	{upper: 0.35, lower: 0.15, offset: 11, slope: 45, band: BandLowMedium},
	{upper: 0.55, lower: 0.35, offset: 20, slope: 50, band: BandMedium},
	{upper: 0.75, lower: 0.55, offset: 30, slope: 50, band: BandMediumHigh},
	{upper: math.Inf(1), lower: 0.75, offset: 40, slope: 40, band: BandHigh},
}

// Estimate is a bounded probability for one scenario.
type Estimate struct {
	Percentage float64      `json:"percentage"`
	Band       Band         `json:"band"`
	Base       float64      `json:"basePercentage"`
	Multiplier float64      `json:"multiplier"`
	Scenario   ScenarioType `json:"scenarioType"`
}

// Multiplier returns the frequency multiplier for a scenario type; unknown types use 1.0.
func Multiplier(s ScenarioType) float64 {
	if m, ok := multipliers[s]; ok {
		return m
	}
	return 1.0
}

// ToProbability maps a score to a percentage in [0,50] and a band. The band comes from the base
// bracket and is not affected by the multiplier. Scores outside [0,1] are clamped.
func ToProbability(score float64, scenario ScenarioType) Estimate {
	if math.IsNaN(score) || score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	var base float64
	var band Band
	for _, b := range brackets {
		if score < b.upper {
			base = b.offset + (score-b.lower)*b.slope
			band = b.band
			break
		}
	}

	m := Multiplier(scenario)
	pct := math.Min(MaxPercentage, base*m)

	return Estimate{
		Percentage: round1(pct),
		Band:       band,
		Base:       round1(base),
		Multiplier: m,
		Scenario:   scenario,
	}
}

// ParseScenarioType normalizes labels such as "Natural Disaster" or "supplier-issue".
func ParseScenarioType(label string) ScenarioType {
	norm := strings.ToLower(strings.TrimSpace(label))
	norm = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(norm)

	if _, ok := multipliers[ScenarioType(norm)]; ok {
		return ScenarioType(norm)
	}

	switch {
	case strings.Contains(norm, "geopolitic"), strings.Contains(norm, "trade"), strings.Contains(norm, "tariff"):
		return ScenarioGeopolitical
	case strings.Contains(norm, "disaster"), strings.Contains(norm, "natural"), strings.Contains(norm, "weather"):
		return ScenarioNaturalDisaster
	case strings.Contains(norm, "supplier"), strings.Contains(norm, "financial"), strings.Contains(norm, "shortage"):
		return ScenarioSupplierIssue
	case strings.Contains(norm, "market"), strings.Contains(norm, "demand"), strings.Contains(norm, "economic"):
		return ScenarioMarketDemand
	case strings.Contains(norm, "transport"), strings.Contains(norm, "logistic"), strings.Contains(norm, "shipping"):
		return ScenarioTransportation
	case strings.Contains(norm, "quality"), strings.Contains(norm, "safety"), strings.Contains(norm, "defect"):
		return ScenarioQuality
	}
	return ScenarioGeneral
}

// ScenarioFromDisruption maps a disruption category (see classify.DisruptionType) to a scenario type.
func ScenarioFromDisruption(category string) ScenarioType {
	switch category {
	case "Geopolitical/Trade":
		return ScenarioGeopolitical
	case "Natural Disaster":
		return ScenarioNaturalDisaster
	case "Supply Shortage", "Supplier Financial", "Labor Issues":
		return ScenarioSupplierIssue
	case "Transportation/Logistics":
		return ScenarioTransportation
	case "Quality/Safety":
		return ScenarioQuality
	case "Market/Economic":
		return ScenarioMarketDemand
	}
	return ScenarioGeneral
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
