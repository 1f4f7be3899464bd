// Package catalog holds the static registry of sub-agents and orchestration
// agents: display names, descriptions, themes, backing tables and system
// prompts. Consumed read-only by the planner, executor and resolver stages.
package catalog

import (
	_ "embed"
	"sort"
	"strings"
)

var (
	//go:embed template/cadastro.txt
	cadastroPrompt string

	//go:embed template/financeiro.txt
	financeiroPrompt string

	//go:embed template/rentabilidade.txt
	rentabilidadePrompt string

	//go:embed template/ambiguity.txt
	ambiguityPrompt string

	//go:embed template/planner.txt
	plannerPrompt string

	//go:embed template/critic.txt
	criticPrompt string

	//go:embed template/response.txt
	responsePrompt string
)

// AgentConfig describes one agent: either a domain sub-agent (Theme set)
// or an orchestration agent (Theme empty).
type AgentConfig struct {
	Name         string
	Description  string
	SystemPrompt string
	Theme        string
	Tables       []string
}

var (
	CadastroAgent = AgentConfig{
		Name:         "CadastroAgent",
		Description:  "Responde perguntas sobre dados cadastrais de clientes.",
		SystemPrompt: strings.TrimSpace(cadastroPrompt),
		Theme:        "cadastro",
		Tables:       []string{"cadastro_clientes", "enderecos", "contatos"},
	}

	FinanceiroAgent = AgentConfig{
		Name:         "FinanceiroAgent",
		Description:  "Responde perguntas sobre transações, saldos e pagamentos.",
		SystemPrompt: strings.TrimSpace(financeiroPrompt),
		Theme:        "financeiro",
		Tables:       []string{"transacoes", "saldos", "pagamentos"},
	}

	RentabilidadeAgent = AgentConfig{
		Name:         "RentabilidadeAgent",
		Description:  "Responde perguntas sobre rentabilidade, margens e desempenho.",
		SystemPrompt: strings.TrimSpace(rentabilidadePrompt),
		Theme:        "rentabilidade",
		Tables:       []string{"rentabilidade", "metricas", "desempenho"},
	}

	AmbiguityResolverAgent = AgentConfig{
		Name:         "AmbiguityResolverAgent",
		Description:  "Normaliza a pergunta e identifica ambiguidades antes da execução.",
		SystemPrompt: strings.TrimSpace(ambiguityPrompt),
	}

	PlannerAgent = AgentConfig{
		Name:         "PlannerAgent",
		Description:  "Analisa a intenção da pergunta e gera o plano de execução.",
		SystemPrompt: strings.TrimSpace(plannerPrompt),
	}

	CriticAgent = AgentConfig{
		Name:         "CriticAgent",
		Description:  "Avalia consistência e completude do relatório consolidado.",
		SystemPrompt: strings.TrimSpace(criticPrompt),
	}

	ResponseAgent = AgentConfig{
		Name:         "ResponseAgent",
		Description:  "Formata a resposta final para o usuário.",
		SystemPrompt: strings.TrimSpace(responsePrompt),
	}
)

// VisualizationAgentName appears in plans as a marker step; it has no
// sub-agent config because the visualization stage handles it directly.
const VisualizationAgentName = "VisualizationAgent"

var subagents = map[string]AgentConfig{
	CadastroAgent.Theme:      CadastroAgent,
	FinanceiroAgent.Theme:    FinanceiroAgent,
	RentabilidadeAgent.Theme: RentabilidadeAgent,
}

// ByTheme returns the sub-agent owning a domain theme.
func ByTheme(theme string) (AgentConfig, bool) {
	cfg, ok := subagents[strings.ToLower(strings.TrimSpace(theme))]
	return cfg, ok
}

// ByAgentName resolves a planner-produced agent name ("RentabilidadeAgent")
// back to its config.
func ByAgentName(name string) (AgentConfig, bool) {
	trimmed := strings.TrimSpace(name)
	for _, cfg := range subagents {
		if strings.EqualFold(cfg.Name, trimmed) {
			return cfg, true
		}
	}
	return AgentConfig{}, false
}

// Themes lists the available domain themes, sorted.
func Themes() []string {
	themes := make([]string, 0, len(subagents))
	for theme := range subagents {
		themes = append(themes, theme)
	}
	sort.Strings(themes)
	return themes
}
