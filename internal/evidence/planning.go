package evidence

import (
	"strings"
	"unicode"
)

// PlanningContext is the user-supplied mitigation planning context.
type PlanningContext struct {
	Constraints       string `json:"constraints,omitempty"`
	TimelinePref      string `json:"timelinePref,omitempty"`
	BudgetRange       string `json:"budgetRange,omitempty"`
	Priorities        string `json:"priorities,omitempty"`
	RiskTolerance     string `json:"riskTolerance,omitempty"`
	TeamSize          string `json:"teamSize,omitempty"`
	DecisionAuthority string `json:"decisionAuthority,omitempty"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// NewPlanningContext reads the known keys from a userInput map.
func NewPlanningContext(in map[string]string) PlanningContext {
	get := func(k string) string { return strings.TrimSpace(in[k]) }
	return PlanningContext{
		Constraints:       get("constraints"),
		TimelinePref:      get("timelinePref"),
		BudgetRange:       get("budgetRange"),
		Priorities:        get("priorities"),
		RiskTolerance:     get("riskTolerance"),
		TeamSize:          get("teamSize"),
		DecisionAuthority: get("decisionAuthority"),
		AdditionalContext: get("additionalContext"),
	}
}

// Empty reports whether no planning context was supplied.
func (p PlanningContext) Empty() bool {
	return p == PlanningContext{}
}

// Summary renders the planning context as labelled markdown bullet lines.
func (p PlanningContext) Summary() string {
	if p.Empty() {
		return "- No specific planning context provided"
	}

	lines := make([]string, 0, 8)
	add := func(label, value string, title bool) {
		if value == "" {
			return
		}
		if title {
			value = titleCase(value)
		}
		lines = append(lines, "- **"+label+"**: "+value)
	}

	add("Constraints", p.Constraints, false)
	add("Timeline Preference", p.TimelinePref, true)
	add("Budget Range", p.BudgetRange, true)
	add("Key Priorities", p.Priorities, false)
	add("Risk Tolerance", p.RiskTolerance, true)
	add("Team Size", p.TeamSize, true)
	add("Decision Authority", p.DecisionAuthority, true)
	add("Additional Context", p.AdditionalContext, false)
	return strings.Join(lines, "\n")
}

// Labelled returns the prompt form used by mitigation planning, one "Label: value" line each.
func (p PlanningContext) Labelled() string {
	pairs := []struct{ label, value string }{
		{"Constraints & Limitations", p.Constraints},
		{"Timeline Preference", p.TimelinePref},
		{"Budget Considerations", p.BudgetRange},
		{"Key Priorities", p.Priorities},
		{"Risk Tolerance", p.RiskTolerance},
		{"Implementation Team Size", p.TeamSize},
		{"Decision Authority Level", p.DecisionAuthority},
		{"Additional Context", p.AdditionalContext},
	}

	var b strings.Builder
	for _, pair := range pairs {
		if pair.value == "" {
			continue
		}
		b.WriteString(pair.label)
		b.WriteString(": ")
		b.WriteString(pair.value)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
