// Package critic validates the consolidated report before the final answer
// is produced. Cheap local heuristics run first and can settle the verdict
// without any model call; only a report that passes both goes to the model
// for a structured completeness judgment.
package critic

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/insigna-ai/maestro/agent/catalog"
	"github.com/insigna-ai/maestro/agent/contract"
	llmx "github.com/insigna-ai/maestro/agent/llm"
)

const (
	// minReportLen: anything shorter cannot be a real answer.
	minReportLen = 50

	shortReportScore = 0
	evasiveScore     = 20
	fallbackScore    = 70
)

// evasivePhrases are generic non-answers. Any match fails validation
// immediately; asking a model whether "preciso de mais contexto" is a
// complete answer would be wasted latency.
var evasivePhrases = []string{
	"requires more context",
	"insufficient data",
	"please specify",
	"preciso de mais contexto",
	"não há dados suficientes",
	"dados insuficientes",
	"favor especificar",
}

type llmVerdict struct {
	IsValid           bool     `json:"is_valid"`
	CompletenessScore int      `json:"completeness_score"`
	Issues            []string `json:"issues"`
	Summary           string   `json:"summary"`
}

// Evaluate produces the validation verdict for a consolidated report.
func Evaluate(ctx context.Context, gw contract.ModelGateway, query, report string) contract.ValidationResult {
	if verdict, done := heuristics(report); done {
		return verdict
	}

	content, err := gw.Invoke(ctx, []*schema.Message{
		schema.SystemMessage(catalog.CriticAgent.SystemPrompt),
		schema.UserMessage(validationPrompt(query, report)),
	})
	if err != nil {
		log.Warn().Err(err).Msg("critic model call failed, using optimistic default")
		return optimisticDefault("Validação indisponível: falha na chamada do modelo.")
	}

	var parsed llmVerdict
	if !llmx.ExtractJSONInto(content, &parsed) {
		// Optimistic on purpose: a formatting glitch in the critic's own
		// output must not veto an otherwise plausible report.
		log.Warn().Msg("critic returned unparseable verdict, using optimistic default")
		return optimisticDefault(salvageSummary(content))
	}

	return contract.ValidationResult{
		IsValid:           parsed.IsValid,
		CompletenessScore: clampScore(parsed.CompletenessScore),
		Issues:            parsed.Issues,
		Summary:           parsed.Summary,
	}
}

// heuristics settles trivially invalid reports locally. The second return
// is true when the verdict is final and no model call is needed.
func heuristics(report string) (contract.ValidationResult, bool) {
	trimmed := strings.TrimSpace(report)
	if len(trimmed) < minReportLen {
		return contract.ValidationResult{
			IsValid:           false,
			CompletenessScore: shortReportScore,
			Issues:            []string{"relatório consolidado muito curto"},
			Summary:           "Relatório abaixo do tamanho mínimo para validação.",
		}, true
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range evasivePhrases {
		if strings.Contains(lower, phrase) {
			return contract.ValidationResult{
				IsValid:           false,
				CompletenessScore: evasiveScore,
				Issues:            []string{fmt.Sprintf("resposta evasiva detectada: %q", phrase)},
				Summary:           "Relatório contém resposta genérica ou evasiva.",
			}, true
		}
	}

	return contract.ValidationResult{}, false
}

// salvageSummary pulls a summary field out of a verdict that failed the
// structured decode, falling back to the raw content when even that is
// missing.
func salvageSummary(content string) string {
	if obj := llmx.ExtractJSON(content); obj != nil {
		if summary, ok := obj["summary"].(string); ok && strings.TrimSpace(summary) != "" {
			return summary
		}
	}
	return strings.TrimSpace(content)
}

func optimisticDefault(summary string) contract.ValidationResult {
	return contract.ValidationResult{
		IsValid:           true,
		CompletenessScore: fallbackScore,
		Summary:           summary,
	}
}

func validationPrompt(query, report string) string {
	return fmt.Sprintf(`Avalie o relatório consolidado abaixo em relação à pergunta do usuário.

Pergunta original:
%s

Relatório consolidado:
%s

Analise:
1. O relatório responde completamente à pergunta?
2. Há inconsistências ou contradições?
3. Os dados fazem sentido no contexto?
4. Há informações faltando?

Responda SOMENTE com o JSON no formato especificado.`, query, report)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
