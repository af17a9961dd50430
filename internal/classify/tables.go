package classify

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
)

//go:embed tables.yaml
var embeddedTables []byte

// Category is one classifier rule together with its risk metadata.
type Category struct {
	Name     string   `yaml:"name" json:"name"`
	Risk     Level    `yaml:"risk" json:"risk"`
	LeadTime string   `yaml:"lead_time" json:"leadTime"`
	Keywords []string `yaml:"keywords" json:"-"`
}

// Rule maps a keyword set to a label.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// PartProfile describes the sourcing characteristics of a part family.
type PartProfile struct {
	Prefixes           []string `yaml:"prefixes" json:"-"`
	Contains           []string `yaml:"contains" json:"-"`
	Type               string   `yaml:"type" json:"type"`
	Manufacturer       string   `yaml:"manufacturer" json:"manufacturer"`
	Complexity         string   `yaml:"complexity" json:"complexity"`
	SourcingDifficulty string   `yaml:"sourcing_difficulty" json:"sourcingDifficulty"`
	KeyFactors         []string `yaml:"key_factors" json:"keyFactors"`
	TypicalLeadTime    string   `yaml:"typical_lead_time" json:"typicalLeadTime"`
	AllocationRisk     string   `yaml:"allocation_risk" json:"allocationRisk"`
}

// Tables holds every lookup table the classifier dispatches on.
type Tables struct {
	Categories        []Category    `yaml:"categories"`
	Other             Category      `yaml:"other"`
	DisruptionTypes   []Rule        `yaml:"disruption_types"`
	DefaultDisruption string        `yaml:"default_disruption"`
	PartProfiles      []PartProfile `yaml:"part_profiles"`
	DefaultProfile    PartProfile   `yaml:"default_profile"`
}

// DefaultTables returns the tables compiled into the binary.
func DefaultTables() Tables {
	var t Tables
	if err := yaml.Unmarshal(embeddedTables, &t); err != nil {
		panic(fmt.Sprintf("classify: embedded tables are invalid: %v", err))
	}
	return t
}

// LoadTables returns the embedded tables, overridden by any section present in the YAML file at path.
// An empty path returns the defaults.
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
	if len(t.Categories) == 0 {
		return t, errors.NewConfigurationError("tables file defines no component categories", nil)
	}
	return t, nil
}
