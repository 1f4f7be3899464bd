package state

import (
	"github.com/insigna-ai/maestro/agent/contract"
)

// Memory status keys. The set is fixed; flags only ever flip false->true
// over the lifetime of one query.
const (
	StatusContextLoaded     = "contexto_carregado"
	StatusMemoryConsulted   = "memoria_consultada"
	StatusAmbiguityResolved = "ambiguidade_resolvida"
	StatusResponseDelivered = "resposta_entregue"
)

// PipelineState is the single mutable record threaded through the pipeline
// stages. One instance per query; each field is owned by the stage that
// sets it and never rewritten by a later stage.
type PipelineState struct {
	OriginalQuery   string
	NormalizedQuery string
	ActiveDomains   []string
	GroupContext    map[string]any
	Identity        string

	Ambiguity         contract.AmbiguityResult
	AmbiguityResolved bool

	Plan              []contract.PlanStep
	SubagentResponses []contract.AgentResult
	Sources           []string
	FinalReport       string

	VisualizationRequested  bool
	VisualizationSuggestion string
	VisualizationData       *contract.VisualizationData

	Validation    contract.ValidationResult
	FinalResponse string

	MemoryContext []contract.MemoryContextEntry
	MemoryStatus  map[string]bool

	Trace []contract.StageResult
}

// NewPipelineState creates the fresh per-query state with every status flag
// down.
func NewPipelineState(query string, domains []string, groupCtx map[string]any, identity string) *PipelineState {
	if groupCtx == nil {
		groupCtx = map[string]any{}
	}
	return &PipelineState{
		OriginalQuery: query,
		ActiveDomains: domains,
		GroupContext:  groupCtx,
		Identity:      identity,
		MemoryStatus: map[string]bool{
			StatusContextLoaded:     false,
			StatusMemoryConsulted:   false,
			StatusAmbiguityResolved: false,
			StatusResponseDelivered: false,
		},
	}
}

// MarkStatus raises a status flag. Unknown keys are ignored and a raised
// flag is never lowered.
func (s *PipelineState) MarkStatus(key string) {
	if _, ok := s.MemoryStatus[key]; ok {
		s.MemoryStatus[key] = true
	}
}

// RecordStage appends one stage outcome to the trace.
func (s *PipelineState) RecordStage(stage string, ok bool, detail, errText string) {
	s.Trace = append(s.Trace, contract.StageResult{
		Stage:  stage,
		OK:     ok,
		Detail: detail,
		Err:    errText,
	})
}
