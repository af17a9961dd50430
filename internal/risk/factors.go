// Package risk scores BOM/KPI rows from historical supplier performance.
package risk

import (
	"math"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/tabular"
)

// Defaults used when a metric column is absent or non-numeric.
const (
	DefaultOnTimeDelivery = 95.0
	DefaultDefectRate     = 2.0
	DefaultCostVariance   = 0.0
	DefaultLeadTimeDays   = 14.0

	// NeutralOverall is reported when there are no rows to score. It reflects baseline uncertainty,
	// not an absence of risk.
	NeutralOverall = 0.3
)

// Factor weights for the composite score.
const (
	WeightDelivery = 0.4
	WeightQuality  = 0.2
	WeightCost     = 0.2
	WeightLeadTime = 0.2
)

// Metrics are the raw historical values read from one row.
type Metrics struct {
	OnTimeDelivery float64 `json:"onTimeDelivery"`
	DefectRate     float64 `json:"defectRate"`
	CostVariance   float64 `json:"costVariance"`
	LeadTimeDays   float64 `json:"leadTimeDays"`
}

// Factors are the four normalized sub-risks of a row, each in [0,1].
type Factors struct {
	Delivery float64 `json:"deliveryRisk"`
	Quality  float64 `json:"qualityRisk"`
	Cost     float64 `json:"costRisk"`
	LeadTime float64 `json:"leadTimeRisk"`
}

// MetricsFromRow extracts the four metrics using the alias tables and documented defaults.
func MetricsFromRow(row tabular.Row) Metrics {
	return Metrics{
		OnTimeDelivery: row.Float(DefaultOnTimeDelivery, tabular.OnTimeDeliveryColumns...),
		DefectRate:     row.Float(DefaultDefectRate, tabular.DefectRateColumns...),
		CostVariance:   row.Float(DefaultCostVariance, tabular.CostVarianceColumns...),
		LeadTimeDays:   row.Float(DefaultLeadTimeDays, tabular.AvgLeadTimeColumns...),
	}
}

// FactorsFor normalizes metrics into sub-risks.
func FactorsFor(m Metrics) Factors {
	return Factors{
		Delivery: clip((100-m.OnTimeDelivery)/100, 0, 1),
		Quality:  clip(m.DefectRate/10, 0, 1),
		Cost:     clip(math.Abs(m.CostVariance)/20, 0, 1),
		LeadTime: clip(m.LeadTimeDays/30, 0, 1),
	}
}

// Composite is the weighted sum of the sub-risks, always in [0,1].
func (f Factors) Composite() float64 {
	c := WeightDelivery*f.Delivery + WeightQuality*f.Quality + WeightCost*f.Cost + WeightLeadTime*f.LeadTime
	return clip(c, 0, 1)
}

func clip(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
