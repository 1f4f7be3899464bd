package catalog

import (
	"strings"
	"testing"
)

func TestByTheme(t *testing.T) {
	t.Parallel()

	cfg, ok := ByTheme("rentabilidade")
	if !ok {
		t.Fatal("expected rentabilidade theme")
	}
	if cfg.Name != "RentabilidadeAgent" {
		t.Fatalf("unexpected agent: %s", cfg.Name)
	}

	if cfg, ok = ByTheme("  Financeiro  "); !ok || cfg.Name != "FinanceiroAgent" {
		t.Fatalf("expected trimmed case-insensitive match, got ok=%t cfg=%s", ok, cfg.Name)
	}

	if _, ok = ByTheme("juridico"); ok {
		t.Fatal("unexpected match for unknown theme")
	}
}

func TestByAgentName(t *testing.T) {
	t.Parallel()

	cfg, ok := ByAgentName("cadastroagent")
	if !ok || cfg.Theme != "cadastro" {
		t.Fatalf("expected case-insensitive name match, got ok=%t theme=%s", ok, cfg.Theme)
	}

	if _, ok = ByAgentName("AgenteInexistente"); ok {
		t.Fatal("unexpected match for unknown agent")
	}
}

func TestThemesSorted(t *testing.T) {
	t.Parallel()

	themes := Themes()
	want := []string{"cadastro", "financeiro", "rentabilidade"}
	if len(themes) != len(want) {
		t.Fatalf("unexpected theme count: %v", themes)
	}
	for i, theme := range want {
		if themes[i] != theme {
			t.Fatalf("unexpected theme order: %v", themes)
		}
	}
}

func TestAllAgentsHavePrompts(t *testing.T) {
	t.Parallel()

	agents := []AgentConfig{
		CadastroAgent, FinanceiroAgent, RentabilidadeAgent,
		AmbiguityResolverAgent, PlannerAgent, CriticAgent, ResponseAgent,
	}
	for _, agent := range agents {
		if strings.TrimSpace(agent.SystemPrompt) == "" {
			t.Fatalf("agent %s has empty system prompt", agent.Name)
		}
		if agent.Description == "" {
			t.Fatalf("agent %s has empty description", agent.Name)
		}
	}
}

func TestSubagentsDeclareTables(t *testing.T) {
	t.Parallel()

	for _, theme := range Themes() {
		cfg, _ := ByTheme(theme)
		if len(cfg.Tables) == 0 {
			t.Fatalf("sub-agent %s declares no tables", cfg.Name)
		}
	}
}
