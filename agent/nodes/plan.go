package pipelinenode

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/insigna-ai/maestro/agent/catalog"
	contractx "github.com/insigna-ai/maestro/agent/contract"
	llmx "github.com/insigna-ai/maestro/agent/llm"
	statex "github.com/insigna-ai/maestro/agent/state"
)

// visualizationKeywords trigger the visualization stage straight from the
// query text, without waiting for the planner's opinion. Accented and plain
// spellings are both listed because user input mixes them freely.
var visualizationKeywords = []string{
	"gráfico", "grafico",
	"chart", "plot",
	"visualiza",
	"evolução", "evolucao",
	"tendência", "tendencia",
}

type plannerResponse struct {
	Steps         []contractx.PlanStep `json:"steps"`
	Visualization bool                 `json:"visualization"`
	Reasoning     string               `json:"reasoning"`
}

// Plan asks the planner model for the execution plan and decides whether a
// visualization was requested. Planner failure leaves the plan empty; the
// executor then reports that nothing could be delegated instead of the
// pipeline aborting.
func Plan(
	ctx context.Context,
	in *statex.PipelineState,
	gw contractx.ModelGateway,
) (*statex.PipelineState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: plan", ErrNilState)
	}

	resp, errText := planWithModel(ctx, gw, in)
	if errText != "" {
		log.Warn().Str("reason", errText).Msg("planner failed, proceeding with empty plan")
	}

	in.Plan = resp.Steps
	in.VisualizationRequested = wantsVisualization(in.OriginalQuery+" "+in.NormalizedQuery, resp)
	if resp.Reasoning != "" {
		log.Debug().Str("reasoning", resp.Reasoning).Int("steps", len(resp.Steps)).Msg("plan built")
	}
	in.RecordStage("plan", errText == "",
		fmt.Sprintf("%d steps, visualization=%t", len(in.Plan), in.VisualizationRequested), errText)
	return in, nil
}

func planWithModel(
	ctx context.Context,
	gw contractx.ModelGateway,
	in *statex.PipelineState,
) (plannerResponse, string) {
	content, err := gw.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(catalog.PlannerAgent.SystemPrompt),
		schema.UserMessage(planningPrompt(in)),
	})
	if err != nil {
		return plannerResponse{}, err.Error()
	}

	var resp plannerResponse
	if !llmx.ExtractJSONInto(content, &resp) {
		return plannerResponse{}, "unparseable planner output"
	}
	return resp, ""
}

// wantsVisualization is true when the query mentions a chart, the planner
// flagged one, or the plan contains an explicit visualization step.
func wantsVisualization(query string, resp plannerResponse) bool {
	if resp.Visualization {
		return true
	}
	for _, step := range resp.Steps {
		if strings.EqualFold(strings.TrimSpace(step.Agent), catalog.VisualizationAgentName) {
			return true
		}
	}
	lower := strings.ToLower(query)
	for _, kw := range visualizationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func planningPrompt(in *statex.PipelineState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pergunta normalizada:\n%s\n", in.NormalizedQuery)

	if len(in.ActiveDomains) > 0 {
		fmt.Fprintf(&b, "\nDomínios ativos: %s\n", strings.Join(in.ActiveDomains, ", "))
	}

	b.WriteString("\nAgentes disponíveis:\n")
	for _, theme := range catalog.Themes() {
		cfg, _ := catalog.ByTheme(theme)
		fmt.Fprintf(&b, "- %s (%s): %s\n", cfg.Name, cfg.Theme, cfg.Description)
	}
	fmt.Fprintf(&b, "- %s: gera sugestão de visualização a partir do relatório.\n", catalog.VisualizationAgentName)

	b.WriteString("\nResponda SOMENTE com o JSON no formato especificado.")
	return b.String()
}
