package generation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/types"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Template names, one per file under prompts/.
const (
	TemplateDisruptionAnalysis  = "disruption-analysis"
	TemplateScenarioExplain     = "scenario-explain"
	TemplateMitigationPlan      = "mitigation-plan"
	TemplateSupplierEvaluation  = "supplier-evaluation"
	TemplateSupplierDiscovery   = "supplier-discovery"
	TemplateComponentInfo       = "component-info"
	TemplateAIAction            = "ai-action"
	TemplateScenarioProbability = "scenario-probability"
)

var promptFuncs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

// Prompts is the parsed template set.
type Prompts struct {
	tmpl *template.Template
}

// LoadPrompts parses the embedded templates.
func LoadPrompts() (*Prompts, error) {
	t, err := template.New("prompts").Funcs(promptFuncs).ParseFS(promptFS, "prompts/*.tmpl")
	if err != nil {
		return nil, errors.NewConfigurationError("could not parse prompt templates", err)
	}
	return &Prompts{tmpl: t}, nil
}

// MustLoadPrompts is LoadPrompts for startup wiring; the templates are compiled in, so a failure
// is a build defect.
func MustLoadPrompts() *Prompts {
	p, err := LoadPrompts()
	if err != nil {
		panic(err)
	}
	return p
}

// Render executes the named template.
func (p *Prompts) Render(name string, data any) (string, error) {
	t := p.tmpl.Lookup(name + ".tmpl")
	if t == nil {
		return "", errors.NewConfigurationError(fmt.Sprintf("unknown prompt template %q", name), nil)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.NewInternalError(fmt.Sprintf("could not render prompt %q", name), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// DisruptionAnalysisData feeds the disruption-analysis template.
type DisruptionAnalysisData struct {
	Limited      bool
	Disruptions  string
	Market       string
	BOMSummary   string
	RiskReport   string
	Intelligence string
	CostReport   string
	BOMTable     string
	KPISummary   string
	KPITable     string
	OpenText     string
}

// ScenarioExplainData feeds the scenario-explain template. Evidence is the already filtered
// real-world section; the template never adds links of its own.
type ScenarioExplainData struct {
	ScenarioID         string
	Description        string
	AffectedComponents string
	PossibleDelay      string
	Probability        string
	Details            string
	BOMComponents      string
	KPISummary         string
	KPITable           string
	OpenText           string
	RiskReport         string
	Evidence           string
}

// MitigationPlanData feeds the mitigation-plan template.
type MitigationPlanData struct {
	ScenarioID          string
	Description         string
	AffectedComponents  string
	Recommendation      string
	PossibleDelay       string
	Probability         string
	ScenarioExplanation string
	BOMComponents       string
	AffectedDetails     string
	KPIInsights         string
	OpenText            string
	PlanningContext     string
	PlanningSummary     string
}

// SupplierEvaluationData feeds the supplier-evaluation template.
type SupplierEvaluationData struct {
	PartNumber        string
	Profile           string
	Manufacturer      string
	SupplierData      string
	SelectedSuppliers []string
	ResearchAdded     []string
	ComponentType     string
	Suppliers         []string
}

// PartData feeds the templates keyed only by a part number.
type PartData struct {
	PartNumber string
}

// AIActionData feeds the ai-action template.
type AIActionData struct {
	ActionType          string
	ActionDescription   string
	ScenarioID          string
	ScenarioDescription string
	AffectedComponents  string
	UserContext         string
	ComponentDetails    string
}

// ScenarioProbabilityData feeds the scenario-probability template.
type ScenarioProbabilityData struct {
	Description        string
	RootCause          string
	AffectedComponents string
	Headlines          []types.Headline
	Disruptions        []types.Headline
	Market             string
}
