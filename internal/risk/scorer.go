package risk

import (
	"sort"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/classify"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/tabular"
)

// Thresholds used to bucket supplier and category averages.
const (
	HighRiskThreshold   = 0.4
	MediumRiskThreshold = 0.2
)

// RowScore is the scored form of a single input row.
type RowScore struct {
	Index     int     `json:"index"`
	Supplier  string  `json:"supplier,omitempty"`
	Category  string  `json:"category"`
	Metrics   Metrics `json:"metrics"`
	Factors   Factors `json:"factors"`
	Composite float64 `json:"composite"`
}

// Profile is the mean composite over a group of rows.
type Profile struct {
	Name    string  `json:"name"`
	Mean    float64 `json:"mean"`
	Samples int     `json:"samples"`
}

// RiskFactors summarizes where the risk concentrates.
type RiskFactors struct {
	HighRiskSuppliers   []string `json:"highRiskSuppliers"`
	MediumRiskSuppliers []string `json:"mediumRiskSuppliers"`
	HighRiskCategories  []string `json:"highRiskCategories"`
	AvgOnTimeDelivery   float64  `json:"avgOnTimeDelivery"`
	AvgDefectRate       float64  `json:"avgDefectRate"`
	AvgLeadTimeDays     float64  `json:"avgLeadTimeDays"`
}

// Assessment is the output of Scorer.Score.
type Assessment struct {
	Rows        []RowScore         `json:"rows"`
	Suppliers   map[string]Profile `json:"supplierRisks"`
	Categories  map[string]Profile `json:"categoryRisks"`
	Overall     float64            `json:"overallRisk"`
	RiskFactors RiskFactors        `json:"riskFactors"`
}

// Scorer computes risk assessments. It holds only read-only tables.
type Scorer struct {
	classifier *classify.Classifier
}

// NewScorer returns a scorer that buckets rows with classifier.
func NewScorer(classifier *classify.Classifier) *Scorer {
	if classifier == nil {
		classifier = classify.Default()
	}
	return &Scorer{classifier: classifier}
}

// Score computes per-row composites, per-supplier and per-category means and the overall mean.
// An empty row set yields NeutralOverall.
func (s *Scorer) Score(rs tabular.RowSet) Assessment {
	a := Assessment{
		Rows:       make([]RowScore, 0, rs.Len()),
		Suppliers:  make(map[string]Profile),
		Categories: make(map[string]Profile),
		Overall:    NeutralOverall,
		RiskFactors: RiskFactors{
			HighRiskSuppliers:   []string{},
			MediumRiskSuppliers: []string{},
			HighRiskCategories:  []string{},
		},
	}
	if rs.Empty() {
		return a
	}

	supplierScores := make(map[string][]float64)
	categoryScores := make(map[string][]float64)
	var composites, onTime, defects, leadTimes []float64

	for i, row := range rs.Rows {
		m := MetricsFromRow(row)
		f := FactorsFor(m)
		score := RowScore{
			Index:     i,
			Supplier:  row.String("", tabular.SupplierColumns...),
			Category:  s.categoryOf(row),
			Metrics:   m,
			Factors:   f,
			Composite: f.Composite(),
		}
		a.Rows = append(a.Rows, score)

		composites = append(composites, score.Composite)
		onTime = append(onTime, m.OnTimeDelivery)
		defects = append(defects, m.DefectRate)
		leadTimes = append(leadTimes, m.LeadTimeDays)

		if score.Supplier != "" {
			supplierScores[score.Supplier] = append(supplierScores[score.Supplier], score.Composite)
		}
		categoryScores[score.Category] = append(categoryScores[score.Category], score.Composite)
	}

	a.Overall = clip(mean(composites), 0, 1)
	a.Suppliers = profiles(supplierScores)
	a.Categories = profiles(categoryScores)

	for _, name := range sortedKeys(a.Suppliers) {
		switch p := a.Suppliers[name]; {
		case p.Mean > HighRiskThreshold:
			a.RiskFactors.HighRiskSuppliers = append(a.RiskFactors.HighRiskSuppliers, name)
		case p.Mean >= MediumRiskThreshold:
			a.RiskFactors.MediumRiskSuppliers = append(a.RiskFactors.MediumRiskSuppliers, name)
		}
	}
	for _, name := range sortedKeys(a.Categories) {
		if a.Categories[name].Mean > HighRiskThreshold {
			a.RiskFactors.HighRiskCategories = append(a.RiskFactors.HighRiskCategories, name)
		}
	}
	a.RiskFactors.AvgOnTimeDelivery = mean(onTime)
	a.RiskFactors.AvgDefectRate = mean(defects)
	a.RiskFactors.AvgLeadTimeDays = mean(leadTimes)

	return a
}

// categoryOf classifies the explicit category column, falling back to the description.
func (s *Scorer) categoryOf(row tabular.Row) string {
	if v, ok := row.Lookup(tabular.CategoryColumns...); ok {
		return s.classifier.Classify(v)
	}
	return s.classifier.Classify(row.String("", tabular.DescriptionColumns...))
}

func profiles(groups map[string][]float64) map[string]Profile {
	out := make(map[string]Profile, len(groups))
	for name, scores := range groups {
		out[name] = Profile{Name: name, Mean: mean(scores), Samples: len(scores)}
	}
	return out
}

func sortedKeys(m map[string]Profile) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
