package evidence

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
)

//go:embed tables.yaml
var embeddedTables []byte

// SupplierLeadTime is a known supplier's typical lead time.
type SupplierLeadTime struct {
	Name string `yaml:"name"`
	Days int    `yaml:"days"`
}

// EntityKeywords are the vocabularies used to pull entities out of scenario text.
type EntityKeywords struct {
	Suppliers   []string `yaml:"suppliers"`
	Components  []string `yaml:"components"`
	Disruptions []string `yaml:"disruptions"`
}

// Tables holds the evidence lookup tables.
type Tables struct {
	SupplierLeadTimes   []SupplierLeadTime `yaml:"supplier_lead_times"`
	DefaultLeadTimeDays int                `yaml:"default_lead_time_days"`
	DisruptionKeywords  []string           `yaml:"disruption_keywords"`
	EntityKeywords      EntityKeywords     `yaml:"entity_keywords"`
	RootCauses          []string           `yaml:"root_causes"`
	StopWords           []string           `yaml:"stop_words"`
	KPIMetrics          []string           `yaml:"kpi_metrics"`
	KPIDateMarkers      []string           `yaml:"kpi_date_markers"`
}

// DefaultTables returns the embedded tables.
func DefaultTables() Tables {
	var t Tables
	if err := yaml.Unmarshal(embeddedTables, &t); err != nil {
		panic(fmt.Sprintf("evidence: embedded tables are invalid: %v", err))
	}
	return t
}

// LoadTables overlays sections found in the YAML file at path on the embedded defaults.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, errors.NewConfigurationError(fmt.Sprintf("failed to read tables file %s", path), err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, errors.NewConfigurationError(fmt.Sprintf("failed to parse tables file %s", path), err)
	}
	if t.DefaultLeadTimeDays <= 0 {
		t.DefaultLeadTimeDays = 7
	}
	return t, nil
}
