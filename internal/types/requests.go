package types

// DisruptionAnalysisRequest asks for generated disruption scenarios over a BOM and KPI history.
type DisruptionAnalysisRequest struct {
	BOM      FlexText `json:"bom"`
	KPI      FlexText `json:"kpi"`
	OpenText FlexText `json:"openText"`
	Mode     string   `json:"mode"`
}

// DisruptionExplainRequest asks for a detailed explanation of one scenario.
type DisruptionExplainRequest struct {
	ScenarioID          string   `json:"scenarioId" binding:"required"`
	ScenarioDescription string   `json:"scenarioDescription" binding:"required"`
	AffectedComponents  FlexText `json:"affectedComponents"`
	PossibleDelay       FlexText `json:"possibleDelay"`
	Probability         FlexText `json:"probability"`
	ExplainableDetails  FlexText `json:"explainableDetails"`
	BOM                 FlexText `json:"bom"`
	KPI                 FlexText `json:"kpi"`
	OpenText            FlexText `json:"openText"`
	Mode                string   `json:"mode"`
}

// MitigationPlanRequest asks for a mitigation plan for a scenario recommendation.
type MitigationPlanRequest struct {
	ScenarioID          string              `json:"scenarioId" binding:"required"`
	Recommendation      string              `json:"recommendation" binding:"required"`
	BOM                 FlexText            `json:"bom"`
	KPI                 FlexText            `json:"kpi"`
	OpenText            FlexText            `json:"openText"`
	ScenarioDescription FlexText            `json:"scenarioDescription"`
	AffectedComponents  FlexText            `json:"affectedComponents"`
	PossibleDelay       FlexText            `json:"possibleDelay"`
	Probability         FlexText            `json:"probability"`
	ExplainableDetails  FlexText            `json:"explainableDetails"`
	ScenarioExplanation FlexText            `json:"scenarioExplanation"`
	UserInput           map[string]FlexText `json:"userInput"`
	Mode                string              `json:"mode"`
}

// SupplierEvaluationRequest asks for a ranked supplier comparison for a part. SupplierData is the
// markdown supplier table from a previous find-supplier call and may be empty when suppliers are
// selected explicitly.
type SupplierEvaluationRequest struct {
	PartNumber        string   `json:"partNumber" binding:"required"`
	SupplierData      FlexText `json:"supplierData"`
	SelectedSuppliers []string `json:"selectedSuppliers"`
	Mode              string   `json:"mode"`
}

// PartRequest carries a single part number (find-supplier, component-info).
type PartRequest struct {
	PartNumber string `json:"partNumber" binding:"required"`
}

// NewsRequest asks for recent supply chain headlines matching a free-text prompt.
type NewsRequest struct {
	Prompt string `json:"prompt"`
}

// AIActionRequest asks for a detailed plan for one follow-up action.
type AIActionRequest struct {
	ActionType          string   `json:"actionType" binding:"required"`
	ActionDescription   string   `json:"actionDescription" binding:"required"`
	ScenarioID          string   `json:"scenarioId"`
	ScenarioDescription FlexText `json:"scenarioDescription"`
	AffectedComponents  FlexText `json:"affectedComponents"`
	BOMData             FlexText `json:"bomData"`
	UserContext         FlexText `json:"userContext"`
	Mode                string   `json:"mode"`
}

// ContactRequest is a contact form submission.
type ContactRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Company   string `json:"company"`
	Subject   string `json:"subject" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

// RiskScoreRequest asks for the deterministic risk assessment without any generation call.
type RiskScoreRequest struct {
	BOM          FlexText `json:"bom"`
	KPI          FlexText `json:"kpi"`
	ScenarioType string   `json:"scenarioType"`
}

// ScenarioProbabilityRequest asks for the probability of one scenario. ScenarioType overrides the
// type derived from RootCause.
type ScenarioProbabilityRequest struct {
	ScenarioDescription string   `json:"scenarioDescription" binding:"required"`
	RootCause           string   `json:"rootCause"`
	AffectedComponents  FlexText `json:"affectedComponents"`
	ScenarioType        string   `json:"scenarioType"`
	BOM                 FlexText `json:"bom"`
	KPI                 FlexText `json:"kpi"`
	Mode                string   `json:"mode"`
}

// ResultResponse is the common {result|error} envelope.
type ResultResponse struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
