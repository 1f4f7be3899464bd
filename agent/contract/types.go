package contract

// Ambiguity is one vague term detected in the user query together with the
// concrete meaning the resolver assigned to it.
type Ambiguity struct {
	Term       string `json:"term"`
	Resolution string `json:"resolution"`
	Domain     string `json:"domain,omitempty"`
}

// AmbiguityResult is the structured output of the ambiguity resolution stage.
type AmbiguityResult struct {
	NormalizedQuestion    string      `json:"normalized_question"`
	AmbiguitiesDetected   []Ambiguity `json:"ambiguities_detected"`
	RequiresClarification bool        `json:"requires_clarification"`
}

// PlanStep is one unit of delegated work assigned to a named sub-agent.
// Produced by the planner, consumed read-only by the executor.
type PlanStep struct {
	Agent    string `json:"agent"`
	Domain   string `json:"domain,omitempty"`
	Task     string `json:"task"`
	Priority int    `json:"priority,omitempty"`
}

// AgentResult is the outcome of one executed plan step. A failed step keeps
// its error text in Response with Success=false; it never aborts the run.
type AgentResult struct {
	Agent    string `json:"agent"`
	Response string `json:"response"`
	Success  bool   `json:"success"`
}

// ValidationResult is the critic verdict over the consolidated report.
type ValidationResult struct {
	IsValid           bool     `json:"is_valid"`
	CompletenessScore int      `json:"completeness_score"`
	Issues            []string `json:"issues,omitempty"`
	Summary           string   `json:"summary"`
}

// VisualizationData carries the chart proposal extracted from the report.
type VisualizationData struct {
	ChartType string    `json:"chart_type"`
	Labels    []string  `json:"labels,omitempty"`
	Values    []float64 `json:"values,omitempty"`
}

// MemoryContextEntry is one recalled long-term memory carried into the
// pipeline state.
type MemoryContextEntry struct {
	Kind    string `json:"tipo"`
	Content string `json:"conteudo"`
	Domain  string `json:"dominio,omitempty"`
}

// StageResult records the outcome of one pipeline stage for tracing.
type StageResult struct {
	Stage  string `json:"stage"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	Err    string `json:"error,omitempty"`
}

// QueryResult is the payload returned to the caller of ProcessQuery.
type QueryResult struct {
	Response                string             `json:"response"`
	NormalizedQuery         string             `json:"normalized_query"`
	FinalReport             string             `json:"final_report"`
	Validation              ValidationResult   `json:"validation"`
	MemoryStatus            map[string]bool    `json:"memory_status"`
	Sources                 []string           `json:"sources"`
	VisualizationSuggestion string             `json:"visualization_suggestion,omitempty"`
	VisualizationData       *VisualizationData `json:"visualization_data,omitempty"`
	Trace                   []StageResult      `json:"trace,omitempty"`
}
