package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := Default()

	tests := []struct {
		description string
		want        string
	}{
		{"ATmega328P Microcontroller", "Semiconductors/ICs"},
		{"Op-amp IC, dual", "Semiconductors/ICs"},
		{"10k thin film resistor", "Passive Components"},
		{"Plastic enclosure, black", "Mechanical Parts"},
		{"USB-C connector", "Connectors/Cables"},
		{"Humidity sensor module", "Sensors"},
		{"SPI flash 16Mbit", "Memory/Storage"},
		{"DDR4 RAM module", "Memory/Storage"},
		{"16MHz crystal", "Timing Components"},
		{"Rubber foot", "Other"},
		{"", "Other"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.description))
		})
	}
}

func TestClassifyShortKeywordsMatchWholeWords(t *testing.T) {
	c := Default()

	// "ic" appears inside "plastic" and "ram" inside "frame" but neither is a whole word.
	assert.Equal(t, "Mechanical Parts", c.Classify("plastic housing frame"))
	assert.Equal(t, "Other", c.Classify("graphic label"))
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := Default()
	for _, desc := range []string{"STM32 MCU", "ceramic capacitor 100nF", "M3 screw"} {
		first := c.Classify(desc)
		level := c.RiskLevel(first, 3)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, c.Classify(desc))
			assert.Equal(t, level, c.RiskLevel(c.Classify(desc), 3))
		}
	}
}

func TestRiskLevel(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		category string
		rows     int
		want     Level
	}{
		{"passives base", "Passive Components", 2, LevelLow},
		{"passives concentrated", "Passive Components", 6, LevelMedium},
		{"threshold is exclusive", "Passive Components", 5, LevelLow},
		{"sensors concentrated", "Sensors", 9, LevelHigh},
		{"high stays high", "Semiconductors/ICs", 12, LevelHigh},
		{"unknown category", "Widgets", 1, LevelMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.RiskLevel(tt.category, tt.rows))
		})
	}
}

func TestDisruptionType(t *testing.T) {
	c := Default()

	tests := []struct {
		title string
		want  string
	}{
		{"New tariffs announced on chip imports", "Geopolitical/Trade"},
		{"Dock workers strike at west coast", "Labor Issues"},
		{"Earthquake halts fab production", "Natural Disaster"},
		{"Ransomware attack hits logistics firm", "Cybersecurity"},
		{"MLCC shortage deepens", "Supply Shortage"},
		{"Shipping rates climb again", "Transportation/Logistics"},
		{"Automaker issues recall", "Quality/Safety"},
		{"Distributor files for bankruptcy", "Supplier Financial"},
		{"Copper prices rise", "Market/Economic"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, c.DisruptionType(tt.title))
		})
	}
}

func TestProfilePart(t *testing.T) {
	c := Default()

	tests := []struct {
		part       string
		wantType   string
		complexity string
	}{
		{"ATtiny85-20PU", "Microcontroller", "High"},
		{"stm32f103c8t6", "Microcontroller", "High"},
		{"ESP32-WROOM-32", "WiFi Microcontroller", "High"},
		{"LM358", "Linear IC", "Medium"},
		{"SN74HC595N", "Logic IC", "Low"},
		{"RES-10K-0603", "Resistor", "Low"},
		{"CAP-100NF", "Capacitor", "Low"},
		{"XYZ123", "Electronic Component", "Medium"},
		{"", "Electronic Component", "Medium"},
	}

	for _, tt := range tests {
		t.Run(tt.part, func(t *testing.T) {
			p := c.ProfilePart(tt.part)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, tt.complexity, p.Complexity)
			assert.NotEmpty(t, p.TypicalLeadTime)
		})
	}
}

func TestLeadTimeExpectation(t *testing.T) {
	c := Default()
	assert.Equal(t, "12-52 weeks (high risk)", c.LeadTimeExpectation("Semiconductors/ICs"))
	assert.Equal(t, "4-16 weeks (medium risk)", c.LeadTimeExpectation("unknown"))
}

func TestLoadTablesOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables.yaml")
	override := []byte(`
categories:
  - name: Widgets
    risk: Low
    lead_time: 1-2 weeks
    keywords: [widget]
`)
	require.NoError(t, os.WriteFile(path, override, 0o600))

	tables, err := LoadTables(path)
	require.NoError(t, err)

	c := New(tables)
	assert.Equal(t, "Widgets", c.Classify("blue widget"))
	assert.Equal(t, "Other", c.Classify("10k resistor"), "categories list is replaced, other sections keep defaults")
	assert.Equal(t, "Natural Disaster", c.DisruptionType("flood"))

	_, err = LoadTables(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	tables, err = LoadTables("")
	require.NoError(t, err)
	assert.Len(t, tables.Categories, 7)
}
