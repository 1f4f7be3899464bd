package pipelinenode

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/insigna-ai/maestro/agent/catalog"
	contractx "github.com/insigna-ai/maestro/agent/contract"
	statex "github.com/insigna-ai/maestro/agent/state"
)

// Respond turns the consolidated report plus critic verdict into the final
// user-facing answer. When the formatting call fails the raw report is the
// answer; a delivered report beats a dropped one.
func Respond(
	ctx context.Context,
	in *statex.PipelineState,
	gw contractx.ModelGateway,
) (*statex.PipelineState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: respond", ErrNilState)
	}

	content, err := gw.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(catalog.ResponseAgent.SystemPrompt),
		schema.UserMessage(responsePrompt(in)),
	})
	if err != nil || strings.TrimSpace(content) == "" {
		log.Warn().Err(err).Msg("response formatting failed, delivering raw report")
		in.FinalResponse = in.FinalReport
		in.MarkStatus(statex.StatusResponseDelivered)
		in.RecordStage("respond", false, "raw report delivered", errText(err))
		return in, nil
	}

	in.FinalResponse = strings.TrimSpace(content)
	in.MarkStatus(statex.StatusResponseDelivered)
	in.RecordStage("respond", true, "", "")
	return in, nil
}

func responsePrompt(in *statex.PipelineState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pergunta original:\n%s\n", in.OriginalQuery)
	if in.NormalizedQuery != in.OriginalQuery {
		fmt.Fprintf(&b, "\nPergunta normalizada:\n%s\n", in.NormalizedQuery)
	}
	fmt.Fprintf(&b, "\nRelatório consolidado:\n%s\n", in.FinalReport)

	fmt.Fprintf(&b, "\nValidação: válido=%t, completude=%d\n",
		in.Validation.IsValid, in.Validation.CompletenessScore)
	for _, issue := range in.Validation.Issues {
		fmt.Fprintf(&b, "- ressalva: %s\n", issue)
	}

	if in.VisualizationSuggestion != "" {
		fmt.Fprintf(&b, "\nSugestão de visualização: %s\n", in.VisualizationSuggestion)
	}

	b.WriteString("\nFormate a resposta final para o usuário em português, mencionando ressalvas quando houver.")
	return b.String()
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
