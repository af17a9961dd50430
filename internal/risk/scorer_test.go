package risk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/classify"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/tabular"
)

func TestFactorsFor(t *testing.T) {
	f := FactorsFor(Metrics{OnTimeDelivery: 70, DefectRate: 5, CostVariance: 10, LeadTimeDays: 20})

	assert.InDelta(t, 0.30, f.Delivery, 1e-9)
	assert.InDelta(t, 0.5, f.Quality, 1e-9)
	assert.InDelta(t, 0.5, f.Cost, 1e-9)
	assert.InDelta(t, 0.667, f.LeadTime, 1e-3)
	assert.InDelta(t, 0.4533, f.Composite(), 1e-3)
}

func TestCompositeBounds(t *testing.T) {
	tests := []struct {
		name string
		m    Metrics
	}{
		{"perfect", Metrics{OnTimeDelivery: 100}},
		{"over delivery", Metrics{OnTimeDelivery: 140, DefectRate: -3, LeadTimeDays: -5}},
		{"terrible", Metrics{OnTimeDelivery: 0, DefectRate: 80, CostVariance: -300, LeadTimeDays: 400}},
		{"negative delivery", Metrics{OnTimeDelivery: -50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FactorsFor(tt.m).Composite()
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 1.0)
		})
	}
}

func TestMetricsFromRowDefaults(t *testing.T) {
	m := MetricsFromRow(tabular.Row{"On-Time Delivery (%)": "late", "Defect Rate (%)": ""})

	assert.Equal(t, DefaultOnTimeDelivery, m.OnTimeDelivery)
	assert.Equal(t, DefaultDefectRate, m.DefectRate)
	assert.Equal(t, DefaultCostVariance, m.CostVariance)
	assert.Equal(t, DefaultLeadTimeDays, m.LeadTimeDays)
}

func TestScoreEmptyInput(t *testing.T) {
	a := NewScorer(nil).Score(tabular.Parse(""))

	assert.Equal(t, NeutralOverall, a.Overall)
	assert.Empty(t, a.Rows)
	assert.Empty(t, a.Suppliers)
	assert.NotNil(t, a.RiskFactors.HighRiskSuppliers)
}

func TestScoreAggregates(t *testing.T) {
	csv := "Supplier,Category,On-Time Delivery (%),Defect Rate (%),Cost Variance (%),Avg Lead Time (days)\n" +
		"Acme,Microcontroller,70,5,10,20\n" +
		"Acme,Microcontroller,70,5,-10,20\n" +
		"Globex,Resistor,99,0.5,1,3\n" +
		"Initech,Sensor,85,2,4,14\n"

	a := NewScorer(classify.Default()).Score(tabular.Parse(csv))
	require.Len(t, a.Rows, 4)

	acme := a.Suppliers["Acme"]
	assert.Equal(t, 2, acme.Samples)
	assert.InDelta(t, 0.4533, acme.Mean, 1e-3)

	assert.Contains(t, a.RiskFactors.HighRiskSuppliers, "Acme")
	assert.NotContains(t, a.RiskFactors.HighRiskSuppliers, "Globex")
	assert.Contains(t, a.RiskFactors.MediumRiskSuppliers, "Initech")
	assert.Contains(t, a.RiskFactors.HighRiskCategories, "Semiconductors/ICs")

	_, ok := a.Categories["Passive Components"]
	assert.True(t, ok)

	var sum float64
	for _, r := range a.Rows {
		sum += r.Composite
	}
	assert.InDelta(t, sum/4, a.Overall, 1e-9)
	assert.InDelta(t, 81, a.RiskFactors.AvgOnTimeDelivery, 1e-9)
}

func TestScoreNonNumericRowsUseDefaults(t *testing.T) {
	rows := make([]tabular.Row, 0, 3)
	for i := 0; i < 3; i++ {
		rows = append(rows, tabular.Row{"Supplier": fmt.Sprintf("S%d", i), "On-Time Delivery (%)": "unknown"})
	}

	a := NewScorer(nil).Score(tabular.RowSet{Columns: []string{"Supplier", "On-Time Delivery (%)"}, Rows: rows})
	expected := FactorsFor(Metrics{DefaultOnTimeDelivery, DefaultDefectRate, DefaultCostVariance, DefaultLeadTimeDays}).Composite()

	assert.InDelta(t, expected, a.Overall, 1e-9)
	assert.Equal(t, "Other", a.Rows[0].Category)
}
