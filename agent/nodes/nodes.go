// Package pipelinenode holds the stage functions of the query pipeline.
// Each node takes the shared pipeline state, does one stage of work with
// the collaborators it is handed, and returns the state for the next node.
// Stage failures that have a safe fallback never abort the run; they are
// recorded in the trace and the pipeline degrades instead.
package pipelinenode

import (
	"errors"
	"strings"

	statex "github.com/insigna-ai/maestro/agent/state"
)

var (
	ErrInvalidQuery = errors.New("query is empty")
	ErrNilState     = errors.New("pipeline state is nil")
)

type GraphInput struct {
	Query        string
	Domains      []string
	GroupContext map[string]any
	Identity     string
}

type GraphOutput struct {
	State *statex.PipelineState
}

func ValidateRequest(in GraphInput) (*statex.PipelineState, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ErrInvalidQuery
	}

	domains := make([]string, 0, len(in.Domains))
	for _, d := range in.Domains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}

	st := statex.NewPipelineState(query, domains, in.GroupContext, strings.TrimSpace(in.Identity))
	st.RecordStage("validate_request", true, "", "")
	return st, nil
}

func Finalize(in *statex.PipelineState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, ErrNilState
	}
	return GraphOutput{State: in}, nil
}
