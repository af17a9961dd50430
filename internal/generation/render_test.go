package generation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

func TestEnsureExternalLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adds attributes after href",
			in:   `<a href="https://example.com/a">A</a>`,
			want: `<a href="https://example.com/a" target="_blank" rel="noopener noreferrer">A</a>`,
		},
		{
			name: "keeps existing target",
			in:   `<a href="/x" target="_self">X</a>`,
			want: `<a href="/x" rel="noopener noreferrer" target="_self">X</a>`,
		},
		{
			name: "keeps existing rel",
			in:   `<a href="https://x.example" rel="nofollow">X</a>`,
			want: `<a href="https://x.example" target="_blank" rel="nofollow">X</a>`,
		},
		{
			name: "complete anchor untouched",
			in:   `<a href="/y" target="_blank" rel="noopener">Y</a>`,
			want: `<a href="/y" target="_blank" rel="noopener">Y</a>`,
		},
		{
			name: "anchor without href",
			in:   `<a name="top">T</a>`,
			want: `<a name="top" target="_blank" rel="noopener noreferrer">T</a>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := EnsureExternalLinks(tt.in)
			assert.Equal(t, tt.want, once)
			assert.Equal(t, once, EnsureExternalLinks(once))
		})
	}
}

func TestUnlinkUnlisted(t *testing.T) {
	in := RenderHTML("See [Reuters story](https://fabricated.example/made-up) and " +
		"[port update](https://news.example/port?a=1&b=2).")

	out := UnlinkUnlisted(in, []string{"https://news.example/port?a=1&b=2"})

	assert.NotContains(t, out, "fabricated.example")
	assert.Contains(t, out, "See Reuters story and")
	assert.Contains(t, out, `href="https://news.example/port?a=1&amp;b=2"`)
	assert.Contains(t, out, ">port update</a>")
	assert.Equal(t, "<p>plain</p>", UnlinkUnlisted(`<p><a href="https://x.example">plain</a></p>`, nil))
}

func TestRenderHTMLTable(t *testing.T) {
	md := "| Scenario ID | Scenario Description |\n|---|---|\n| S1 | [Port strike](https://news.example/strike) delays |\n| S2 | Resistor shortage |"

	out := RenderHTML(md)

	assert.True(t, strings.HasPrefix(out, "<div>"))
	assert.True(t, strings.HasSuffix(out, "</div>"))
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>S1</td>")
	assert.Contains(t, out, `href="https://news.example/strike" target="_blank" rel="noopener noreferrer"`)
	assert.Equal(t, 1, strings.Count(out, "target="))
}

func TestHighlightRows(t *testing.T) {
	html := MarkdownToHTML("| ID | Description |\n|---|---|\n| S1 | Digi-Key delays |\n| S2 | Flooding |")

	out := HighlightRows(html, []string{"digi-key"})

	assert.Equal(t, 1, strings.Count(out, `<tr class="highlight"`))
	assert.Equal(t, out, HighlightRows(out, []string{"digi-key"}))
	assert.Equal(t, html, HighlightRows(html, nil))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\": [1, 2]}\n```", `{"a": [1, 2]}`, true},
		{"prose around object", `Here you go: {"a": "x}y"} hope it helps`, `{"a": "x}y"}`, true},
		{"skips invalid braces", `use {placeholder} then {"ok": true}`, `{"ok": true}`, true},
		{"array", `result: [1,2,3]`, `[1,2,3]`, true},
		{"no json", "I cannot help with that.", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseProbabilityResearch(t *testing.T) {
	r, err := ParseProbabilityResearch("```json\n{\"probability_percentage\": 42, \"confidence_level\": \"High\", \"key_news_items\": [\"Port strike\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, MaxResearchProbability, r.ProbabilityPercentage)
	assert.Equal(t, "High", r.ConfidenceLevel)
	assert.Equal(t, []string{"Port strike"}, r.KeyNewsItems)

	r, err = ParseProbabilityResearch(`{"probability_percentage": -2}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r.ProbabilityPercentage)
	assert.Equal(t, "Low", r.ConfidenceLevel)

	r, err = ParseProbabilityResearch("no data")
	assert.Error(t, err)
	assert.Equal(t, 3.0, r.ProbabilityPercentage)
	assert.Equal(t, "Low", r.ConfidenceLevel)
	assert.Equal(t, "Unable to parse market research analysis", r.EvidenceSummary)
}

func TestParseSupplierDiscovery(t *testing.T) {
	response := `PART DESCRIPTION:
An 8-bit AVR microcontroller.

SUPPLIER TABLE:
| Part Number | Manufacturer | Supplier | Cost | Evaluation Link | Best Supplier |
|-------------|--------------|----------|------|-----------------|---------------|
| ATMEGA328P | Microchip | LCSC | $2.10 | [Evaluate Suppliers](URL) | Yes |
| ATMEGA328P | Microchip | Rochester | $2.40 | https://elsewhere.example | No |`

	d := ParseSupplierDiscovery(response, "ATMEGA328P")

	assert.Equal(t, "An 8-bit AVR microcontroller.", d.Description)
	assert.False(t, d.ManufacturerIncomplete)
	assert.Equal(t, 2, strings.Count(d.Table, "[Evaluate Suppliers](/supplier-evaluation.html?part=ATMEGA328P)"))
	assert.Contains(t, d.Table, "| Evaluation Link |")
	assert.NotContains(t, d.Table, "elsewhere.example")

	out := d.HTML()
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, `target="_blank"`)
}

func TestParseSupplierDiscoveryWithoutSections(t *testing.T) {
	d := ParseSupplierDiscovery("| A | B |\n|---|---|\n| 1 | 2 |", "X1")

	assert.Equal(t, "Part description not available\n\n"+ManufacturerWarning, d.Description)
	assert.True(t, d.ManufacturerIncomplete)
}

func TestSupplierDiscoveryHTMLEscapesDescription(t *testing.T) {
	d := SupplierDiscovery{Description: "Rated <5V> & \"automotive\"\nAEC-Q100 grade"}

	out := d.HTML()
	assert.Contains(t, out, "Rated &lt;5V&gt; &amp; &#34;automotive&#34;<br>AEC-Q100 grade</div>")
	assert.NotContains(t, out, "<5V>")
}

func TestPromptsRender(t *testing.T) {
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	data := map[string]any{
		TemplateDisruptionAnalysis:  DisruptionAnalysisData{Limited: true, OpenText: "Digi-Key delays"},
		TemplateScenarioExplain:     ScenarioExplainData{ScenarioID: "S3", Description: "Port strike", Evidence: "REAL-WORLD SUPPORTING INFORMATION:\n[Strike](https://n.example/1)"},
		TemplateMitigationPlan:      MitigationPlanData{ScenarioID: "S3", Recommendation: "Dual source"},
		TemplateSupplierEvaluation:  SupplierEvaluationData{PartNumber: "LM358", Suppliers: []string{"Digi-Key", "Mouser"}},
		TemplateSupplierDiscovery:   PartData{PartNumber: "LM358"},
		TemplateComponentInfo:       PartData{PartNumber: "LM358"},
		TemplateAIAction:            AIActionData{ActionType: "Generate RFQ templates", ActionDescription: "RFQ for LM358"},
		TemplateScenarioProbability: ScenarioProbabilityData{Description: "Port strike", Headlines: []types.Headline{{Title: "Dockworkers strike", Source: "example.com"}}},
	}

	for name, d := range data {
		t.Run(name, func(t *testing.T) {
			out, err := prompts.Render(name, d)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
			assert.NotContains(t, out, "<no value>")
		})
	}

	out, err := prompts.Render(TemplateScenarioExplain, data[TemplateScenarioExplain])
	require.NoError(t, err)
	assert.Contains(t, out, "https://n.example/1")
	assert.Contains(t, out, "scenarioId=S3")

	out, err = prompts.Render(TemplateDisruptionAnalysis, data[TemplateDisruptionAnalysis])
	require.NoError(t, err)
	assert.Contains(t, out, "Limited analysis mode")
	assert.Contains(t, out, `"Digi-Key delays"`)

	out, err = prompts.Render(TemplateScenarioProbability, data[TemplateScenarioProbability])
	require.NoError(t, err)
	assert.Contains(t, out, "Dockworkers strike (Source: example.com, Published: Unknown)")

	_, err = prompts.Render("missing", nil)
	assert.Error(t, err)
}
