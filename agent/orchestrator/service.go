// Package orchestrator wires the pipeline stages into a compiled graph and
// exposes ProcessQuery, the single entry point of the system.
package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/insigna-ai/maestro/agent/contract"
	memoryx "github.com/insigna-ai/maestro/agent/memory"
	nodex "github.com/insigna-ai/maestro/agent/nodes"
	statex "github.com/insigna-ai/maestro/agent/state"
	toolx "github.com/insigna-ai/maestro/agent/tool"
)

var ErrInvalidQuery = nodex.ErrInvalidQuery

// Gateways is the set of per-stage model gateways the pipeline runs on.
type Gateways struct {
	Resolver  contractx.ModelGateway
	Planner   contractx.ModelGateway
	Executor  contractx.ModelGateway
	Critic    contractx.ModelGateway
	Responder contractx.ModelGateway
}

type Pipeline struct {
	gateways Gateways
	tools    toolx.Executor
	memory   *memoryx.Service
	session  *statex.Session

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
}

// New compiles the pipeline graph. Every gateway is required; a missing one
// means the configuration is broken and the process should not serve
// queries. A nil tool executor degrades to the offline default, and the
// memory service is optional, recall and persistence become no-ops
// without it.
func New(gws Gateways, tools toolx.Executor, memory *memoryx.Service, session *statex.Session) (*Pipeline, error) {
	for _, check := range []struct {
		name string
		gw   contractx.ModelGateway
	}{
		{"resolver", gws.Resolver},
		{"planner", gws.Planner},
		{"executor", gws.Executor},
		{"critic", gws.Critic},
		{"responder", gws.Responder},
	} {
		if check.gw == nil {
			return nil, errors.New(check.name + " gateway is required")
		}
	}

	if tools == nil {
		tools = toolx.DefaultExecutor()
	}
	if session == nil {
		session = statex.NewSession()
	}

	p := &Pipeline{
		gateways: gws,
		tools:    tools,
		memory:   memory,
		session:  session,
	}

	graphRunner, err := p.compileProcessQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.graphRunner = graphRunner

	return p, nil
}

// ProcessQuery runs one query through the full pipeline and updates the
// short-term session with the exchange.
func (p *Pipeline) ProcessQuery(
	ctx context.Context,
	identity string,
	query string,
	domains []string,
	groupContext map[string]any,
) (contractx.QueryResult, error) {
	out, err := p.graphRunner.Invoke(ctx, nodex.GraphInput{
		Query:        query,
		Domains:      domains,
		GroupContext: groupContext,
		Identity:     identity,
	})
	if err != nil {
		return contractx.QueryResult{}, err
	}

	st := out.State
	p.session.SetIdentity(st.Identity)
	p.session.SetActiveDomains(st.ActiveDomains)
	p.session.SetLastQuery(st.OriginalQuery)
	p.session.Append("user", st.OriginalQuery, nil)
	p.session.SetLastResponse(st.FinalResponse)
	p.session.Append("assistant", st.FinalResponse, nil)

	return resultFrom(st), nil
}

// Session exposes the short-term conversation state for inspection.
func (p *Pipeline) Session() *statex.Session {
	return p.session
}

// memorizerFor resolves the long-term memory agent for one identity. Nil
// disables both recall and persistence for the run.
func (p *Pipeline) memorizerFor(identity string) contractx.Memorizer {
	if p.memory == nil || strings.TrimSpace(identity) == "" {
		return nil
	}
	agent, err := p.memory.ForIdentity(identity)
	if err != nil {
		log.Warn().Err(err).Str("identity", identity).Msg("memory unavailable for identity")
		return nil
	}
	return agent
}

func resultFrom(st *statex.PipelineState) contractx.QueryResult {
	return contractx.QueryResult{
		Response:                st.FinalResponse,
		NormalizedQuery:         st.NormalizedQuery,
		FinalReport:             st.FinalReport,
		Validation:              st.Validation,
		MemoryStatus:            st.MemoryStatus,
		Sources:                 st.Sources,
		VisualizationSuggestion: st.VisualizationSuggestion,
		VisualizationData:       st.VisualizationData,
		Trace:                   st.Trace,
	}
}
