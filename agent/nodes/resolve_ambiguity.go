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

// ResolveAmbiguity normalizes the query and extracts vague terms with their
// assigned meanings. Already-resolved state passes through untouched, so a
// clarified follow-up does not pay for a second resolution round. Any model
// or parse failure degrades to the identity resolution: the original query
// unchanged and nothing detected.
func ResolveAmbiguity(
	ctx context.Context,
	in *statex.PipelineState,
	gw contractx.ModelGateway,
) (*statex.PipelineState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: resolve_ambiguity", ErrNilState)
	}

	if in.AmbiguityResolved {
		if strings.TrimSpace(in.NormalizedQuery) == "" {
			in.NormalizedQuery = in.OriginalQuery
		}
		in.RecordStage("resolve_ambiguity", true, "already resolved", "")
		return in, nil
	}

	result, errText := resolveWithModel(ctx, gw, in)
	if errText != "" {
		log.Warn().Str("reason", errText).Msg("ambiguity resolution degraded to passthrough")
		result = fallbackResolution(in.OriginalQuery)
	}

	if strings.TrimSpace(result.NormalizedQuestion) == "" {
		result.NormalizedQuestion = in.OriginalQuery
	}

	in.Ambiguity = result
	in.NormalizedQuery = result.NormalizedQuestion
	in.AmbiguityResolved = true
	in.MarkStatus(statex.StatusAmbiguityResolved)
	in.RecordStage("resolve_ambiguity", errText == "",
		fmt.Sprintf("%d ambiguities", len(result.AmbiguitiesDetected)), errText)
	return in, nil
}

func resolveWithModel(
	ctx context.Context,
	gw contractx.ModelGateway,
	in *statex.PipelineState,
) (contractx.AmbiguityResult, string) {
	content, err := gw.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(catalog.AmbiguityResolverAgent.SystemPrompt),
		schema.UserMessage(resolutionPrompt(in)),
	})
	if err != nil {
		return contractx.AmbiguityResult{}, err.Error()
	}

	var result contractx.AmbiguityResult
	if !llmx.ExtractJSONInto(content, &result) {
		return contractx.AmbiguityResult{}, "unparseable resolver output"
	}
	return result, ""
}

func fallbackResolution(query string) contractx.AmbiguityResult {
	return contractx.AmbiguityResult{
		NormalizedQuestion:    query,
		AmbiguitiesDetected:   []contractx.Ambiguity{},
		RequiresClarification: false,
	}
}

func resolutionPrompt(in *statex.PipelineState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pergunta do usuário:\n%s\n", in.OriginalQuery)

	if len(in.ActiveDomains) > 0 {
		fmt.Fprintf(&b, "\nDomínios ativos: %s\n", strings.Join(in.ActiveDomains, ", "))
	}

	if len(in.MemoryContext) > 0 {
		b.WriteString("\nResoluções anteriores deste usuário:\n")
		for _, entry := range in.MemoryContext {
			fmt.Fprintf(&b, "- %s\n", entry.Content)
		}
	}

	b.WriteString("\nResponda SOMENTE com o JSON no formato especificado.")
	return b.String()
}
