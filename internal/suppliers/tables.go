package suppliers

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
)

//go:embed tables.yaml
var embeddedTables []byte

// Profile is a supplier's base scores for the deterministic fallback model.
type Profile struct {
	Name      string `yaml:"name"`
	Cost      int    `yaml:"cost"`
	Delivery  int    `yaml:"delivery"`
	Quality   int    `yaml:"quality"`
	Specialty string `yaml:"specialty"`
}

// Backfill maps a component-type keyword to the suppliers recommended for it.
type Backfill struct {
	Keyword   string   `yaml:"keyword"`
	Suppliers []string `yaml:"suppliers"`
}

// URLPattern maps a supplier name fragment to its search URL template.
type URLPattern struct {
	Match string `yaml:"match"`
	URL   string `yaml:"url"`
}

// Tables holds the supplier lookup tables.
type Tables struct {
	Predetermined     []string       `yaml:"predetermined"`
	Profiles          []Profile      `yaml:"profiles"`
	GenericProfile    Profile        `yaml:"generic_profile"`
	ComplexityPenalty map[string]int `yaml:"complexity_penalty"`
	SourcingPenalty   map[string]int `yaml:"sourcing_penalty"`
	AvailabilityCycle []string       `yaml:"availability_cycle"`
	Backfill          []Backfill     `yaml:"backfill"`
	DefaultBackfill   []string       `yaml:"default_backfill"`
	URLPatterns       []URLPattern   `yaml:"url_patterns"`
	FallbackURL       string         `yaml:"fallback_url"`
}

// DefaultTables returns the embedded tables.
func DefaultTables() Tables {
	var t Tables
	if err := yaml.Unmarshal(embeddedTables, &t); err != nil {
		panic(fmt.Sprintf("suppliers: embedded tables are invalid: %v", err))
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
	if len(t.AvailabilityCycle) == 0 {
		return t, errors.NewConfigurationError("tables file defines no availability cycle", nil)
	}
	return t, nil
}
