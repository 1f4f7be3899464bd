package pipelinenode

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/insigna-ai/maestro/agent/contract"
	llmx "github.com/insigna-ai/maestro/agent/llm"
	statex "github.com/insigna-ai/maestro/agent/state"
)

type chartProposal struct {
	Suggestion string    `json:"suggestion"`
	ChartType  string    `json:"chart_type"`
	Labels     []string  `json:"labels"`
	Values     []float64 `json:"values"`
}

// Visualize proposes a chart over the consolidated report. The stage only
// runs when the planner or the query asked for one, and an empty proposal
// is a valid outcome: not every report contains plottable series.
func Visualize(
	ctx context.Context,
	in *statex.PipelineState,
	gw contractx.ModelGateway,
) (*statex.PipelineState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: visualize", ErrNilState)
	}

	if !in.VisualizationRequested {
		in.RecordStage("visualize", true, "not requested", "")
		return in, nil
	}

	content, err := gw.Invoke(ctx, []*schema.Message{
		schema.SystemMessage("Você extrai de relatórios analíticos uma proposta de gráfico em JSON com os campos suggestion, chart_type, labels e values."),
		schema.UserMessage(visualizationPrompt(in)),
	})
	if err != nil {
		log.Warn().Err(err).Msg("visualization proposal failed")
		in.RecordStage("visualize", false, "", err.Error())
		return in, nil
	}

	var proposal chartProposal
	if !llmx.ExtractJSONInto(content, &proposal) {
		in.VisualizationSuggestion = strings.TrimSpace(content)
		in.RecordStage("visualize", true, "unstructured suggestion", "")
		return in, nil
	}

	in.VisualizationSuggestion = strings.TrimSpace(proposal.Suggestion)
	if proposal.ChartType != "" && len(proposal.Values) > 0 {
		in.VisualizationData = &contractx.VisualizationData{
			ChartType: proposal.ChartType,
			Labels:    proposal.Labels,
			Values:    proposal.Values,
		}
	}
	in.RecordStage("visualize", true, proposal.ChartType, "")
	return in, nil
}

func visualizationPrompt(in *statex.PipelineState) string {
	return fmt.Sprintf(`Pergunta do usuário:
%s

Relatório consolidado:
%s

Se o relatório contiver séries numéricas plotáveis, proponha um gráfico.
Responda SOMENTE com o JSON {"suggestion","chart_type","labels","values"}.`,
		in.NormalizedQuery, in.FinalReport)
}
