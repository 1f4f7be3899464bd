package pipelinenode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/insigna-ai/maestro/agent/contract"
	statex "github.com/insigna-ai/maestro/agent/state"
	toolx "github.com/insigna-ai/maestro/agent/tool"
)

type fakeGateway struct {
	responses     []string
	err           error
	supportsTools bool
	calls         int
	prompts       []string
	boundTools    int
}

func (f *fakeGateway) Invoke(ctx context.Context, messages []*schema.Message) (string, error) {
	f.calls++
	for _, msg := range messages {
		if msg.Role == schema.User {
			f.prompts = append(f.prompts, msg.Content)
		}
	}
	if f.err != nil {
		return "", f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		return "", fmt.Errorf("no scripted response left at call=%d", f.calls)
	}
	return f.responses[idx], nil
}

func (f *fakeGateway) Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	content, err := f.Invoke(ctx, messages)
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(content, nil), nil
}

func (f *fakeGateway) WithTools(tools []*schema.ToolInfo) (contractx.ModelGateway, error) {
	f.boundTools = len(tools)
	return f, nil
}

func (f *fakeGateway) SupportsTools() bool { return f.supportsTools }

func (f *fakeGateway) ModelID() string { return "fake-model" }

type resolutionWrite struct {
	term       string
	resolution string
	domain     string
}

type fakeMemorizer struct {
	recalled []contractx.MemoryContextEntry
	writes   []resolutionWrite
}

func (f *fakeMemorizer) RecallResolutions(ctx context.Context, query string, limit int) []contractx.MemoryContextEntry {
	if len(f.recalled) > limit {
		return f.recalled[:limit]
	}
	return f.recalled
}

func (f *fakeMemorizer) MemorizeResolution(ctx context.Context, term, resolution, domain string) (string, bool) {
	f.writes = append(f.writes, resolutionWrite{term: term, resolution: resolution, domain: domain})
	return "mem_fake", true
}

func newResolvedState(query string) *statex.PipelineState {
	st := statex.NewPipelineState(query, []string{"rentabilidade"}, nil, "user-1")
	st.NormalizedQuery = query
	st.AmbiguityResolved = true
	return st
}

func TestValidateRequestRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	if _, err := ValidateRequest(GraphInput{Query: "   "}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestValidateRequestNormalizesDomains(t *testing.T) {
	t.Parallel()

	st, err := ValidateRequest(GraphInput{
		Query:    "  qual o saldo?  ",
		Domains:  []string{" Financeiro ", "", "RENTABILIDADE"},
		Identity: " user-1 ",
	})
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if st.OriginalQuery != "qual o saldo?" {
		t.Fatalf("unexpected query: %q", st.OriginalQuery)
	}
	if len(st.ActiveDomains) != 2 || st.ActiveDomains[0] != "financeiro" || st.ActiveDomains[1] != "rentabilidade" {
		t.Fatalf("unexpected domains: %v", st.ActiveDomains)
	}
	if st.Identity != "user-1" {
		t.Fatalf("unexpected identity: %q", st.Identity)
	}
}

func TestRecallMemoryWithMemorizer(t *testing.T) {
	t.Parallel()

	mem := &fakeMemorizer{recalled: []contractx.MemoryContextEntry{
		{Kind: "ambiguidade", Content: "varejo refere-se a segmento varejo"},
	}}
	st := statex.NewPipelineState("pergunta sobre varejo", nil, nil, "user-1")

	st, err := RecallMemory(context.Background(), st, mem)
	if err != nil {
		t.Fatalf("RecallMemory() error = %v", err)
	}
	if len(st.MemoryContext) != 1 {
		t.Fatalf("expected 1 recalled entry, got %d", len(st.MemoryContext))
	}
	if !st.MemoryStatus[statex.StatusContextLoaded] || !st.MemoryStatus[statex.StatusMemoryConsulted] {
		t.Fatalf("expected context and memory flags raised: %v", st.MemoryStatus)
	}
}

func TestRecallMemoryDisabled(t *testing.T) {
	t.Parallel()

	st := statex.NewPipelineState("pergunta", nil, nil, "")

	st, err := RecallMemory(context.Background(), st, nil)
	if err != nil {
		t.Fatalf("RecallMemory() error = %v", err)
	}
	if !st.MemoryStatus[statex.StatusContextLoaded] {
		t.Fatal("context flag must raise even without memory")
	}
	if st.MemoryStatus[statex.StatusMemoryConsulted] {
		t.Fatal("memory flag must stay down without a memorizer")
	}
}

func TestResolveAmbiguityStructured(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{
		`{"normalized_question": "qual a rentabilidade dos clientes com status ativo?",
		  "ambiguities_detected": [{"term": "clientes ativos", "resolution": "status ativo", "domain": "cadastro"}],
		  "requires_clarification": false}`,
	}}
	st := statex.NewPipelineState("qual a rentabilidade dos clientes ativos?", nil, nil, "user-1")

	st, err := ResolveAmbiguity(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("ResolveAmbiguity() error = %v", err)
	}
	if !st.AmbiguityResolved {
		t.Fatal("expected resolved flag")
	}
	if st.NormalizedQuery != "qual a rentabilidade dos clientes com status ativo?" {
		t.Fatalf("unexpected normalized query: %q", st.NormalizedQuery)
	}
	if len(st.Ambiguity.AmbiguitiesDetected) != 1 {
		t.Fatalf("unexpected ambiguities: %+v", st.Ambiguity)
	}
	if !st.MemoryStatus[statex.StatusAmbiguityResolved] {
		t.Fatal("expected ambiguity status flag raised")
	}
}

func TestResolveAmbiguityFallbackOnGarbage(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{"não consigo ajudar com isso"}}
	st := statex.NewPipelineState("qual o saldo?", nil, nil, "")

	st, err := ResolveAmbiguity(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("ResolveAmbiguity() error = %v", err)
	}
	if st.NormalizedQuery != "qual o saldo?" {
		t.Fatalf("fallback must keep the original query, got %q", st.NormalizedQuery)
	}
	if len(st.Ambiguity.AmbiguitiesDetected) != 0 || st.Ambiguity.RequiresClarification {
		t.Fatalf("fallback must be empty: %+v", st.Ambiguity)
	}
	if !st.AmbiguityResolved {
		t.Fatal("fallback still counts as resolved")
	}
}

func TestResolveAmbiguitySkipsWhenAlreadyResolved(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	st := newResolvedState("pergunta já resolvida anteriormente")

	st, err := ResolveAmbiguity(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("ResolveAmbiguity() error = %v", err)
	}
	if gw.calls != 0 {
		t.Fatalf("expected no model call, got %d", gw.calls)
	}
}

func TestPlanParsesSteps(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{
		`{"steps": [{"agent": "RentabilidadeAgent", "domain": "rentabilidade", "task": "calcular rentabilidade", "priority": 1}],
		  "visualization": false, "reasoning": "uma etapa basta"}`,
	}}
	st := newResolvedState("qual a rentabilidade do cliente?")

	st, err := Plan(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(st.Plan) != 1 || st.Plan[0].Agent != "RentabilidadeAgent" {
		t.Fatalf("unexpected plan: %+v", st.Plan)
	}
	if st.VisualizationRequested {
		t.Fatal("visualization must not be requested")
	}
}

func TestPlanVisualizationByKeyword(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{`{"steps": [], "visualization": false}`}}
	st := newResolvedState("mostre um gráfico da evolução do saldo")

	st, err := Plan(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !st.VisualizationRequested {
		t.Fatal("keyword must trigger visualization")
	}
}

func TestPlanVisualizationByPlannerFlag(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{`{"steps": [], "visualization": true}`}}
	st := newResolvedState("compare os resultados do semestre")

	st, _ = Plan(context.Background(), st, gw)
	if !st.VisualizationRequested {
		t.Fatal("planner flag must trigger visualization")
	}
}

func TestPlanVisualizationByMarkerStep(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{
		`{"steps": [{"agent": "VisualizationAgent", "task": "propor gráfico"}], "visualization": false}`,
	}}
	st := newResolvedState("compare os resultados do semestre")

	st, _ = Plan(context.Background(), st, gw)
	if !st.VisualizationRequested {
		t.Fatal("marker step must trigger visualization")
	}
}

func TestPlanEmptyOnModelFailure(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{err: errors.New("timeout")}
	st := newResolvedState("qual o saldo?")

	st, err := Plan(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("Plan() must not propagate model errors, got %v", err)
	}
	if len(st.Plan) != 0 {
		t.Fatalf("expected empty plan, got %+v", st.Plan)
	}
}

func TestExecuteRunsStepsAndConsolidates(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{
		"Rentabilidade média de 12,4% no trimestre.",
		"Relatório consolidado: rentabilidade média de 12,4% no trimestre, acima da meta.",
	}}
	st := newResolvedState("qual a rentabilidade do cliente?")
	st.Plan = []contractx.PlanStep{
		{Agent: "RentabilidadeAgent", Domain: "rentabilidade", Task: "calcular rentabilidade", Priority: 1},
	}

	st, err := Execute(context.Background(), st, gw, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(st.SubagentResponses) != 1 || !st.SubagentResponses[0].Success {
		t.Fatalf("unexpected responses: %+v", st.SubagentResponses)
	}
	if len(st.Sources) != 1 || st.Sources[0] != "RentabilidadeAgent" {
		t.Fatalf("unexpected sources: %v", st.Sources)
	}
	if !strings.Contains(st.FinalReport, "consolidado") {
		t.Fatalf("unexpected report: %q", st.FinalReport)
	}
	if gw.calls != 2 {
		t.Fatalf("expected step + consolidation calls, got %d", gw.calls)
	}
}

func TestExecuteStepOrderFollowsPriority(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{
		"resposta da primeira etapa",
		"resposta da segunda etapa",
		"relatório consolidado das duas etapas",
	}}
	st := newResolvedState("pergunta composta sobre cadastro e finanças")
	st.Plan = []contractx.PlanStep{
		{Agent: "FinanceiroAgent", Domain: "financeiro", Task: "apurar saldo", Priority: 2},
		{Agent: "CadastroAgent", Domain: "cadastro", Task: "identificar cliente", Priority: 1},
	}

	st, err := Execute(context.Background(), st, gw, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(st.Sources) != 2 || st.Sources[0] != "CadastroAgent" || st.Sources[1] != "FinanceiroAgent" {
		t.Fatalf("unexpected source order: %v", st.Sources)
	}
}

func TestExecuteUnknownAgentIsPartialFailure(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{
		"relatório consolidado parcial",
	}}
	st := newResolvedState("pergunta")
	st.Plan = []contractx.PlanStep{
		{Agent: "AgenteFantasma", Domain: "juridico", Task: "tarefa impossível"},
	}

	st, err := Execute(context.Background(), st, gw, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(st.SubagentResponses) != 1 || st.SubagentResponses[0].Success {
		t.Fatalf("expected failed step result: %+v", st.SubagentResponses)
	}
	if !strings.Contains(st.SubagentResponses[0].Response, "desconhecido") {
		t.Fatalf("unexpected failure text: %q", st.SubagentResponses[0].Response)
	}
}

func TestExecuteConsolidationFallbackConcatenates(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{"resposta única da etapa"}}
	st := newResolvedState("pergunta")
	st.Plan = []contractx.PlanStep{
		{Agent: "RentabilidadeAgent", Domain: "rentabilidade", Task: "tarefa"},
	}

	// Only one scripted response: the consolidation call errors out.
	st, err := Execute(context.Background(), st, gw, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(st.FinalReport, "**RentabilidadeAgent**") {
		t.Fatalf("expected concatenated fallback, got %q", st.FinalReport)
	}
	if !strings.Contains(st.FinalReport, "resposta única da etapa") {
		t.Fatalf("fallback must carry the step response: %q", st.FinalReport)
	}
}

func TestExecuteEmptyPlan(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	st := newResolvedState("pergunta")

	st, err := Execute(context.Background(), st, gw, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gw.calls != 0 {
		t.Fatalf("expected no model calls, got %d", gw.calls)
	}
	if st.FinalReport != emptyPlanReport {
		t.Fatalf("unexpected report: %q", st.FinalReport)
	}
}

func TestExecuteBindsToolsWhenSupported(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{
		supportsTools: true,
		responses: []string{
			"resposta com acesso a ferramentas",
			"relatório consolidado",
		},
	}
	st := newResolvedState("pergunta")
	st.Plan = []contractx.PlanStep{
		{Agent: "FinanceiroAgent", Domain: "financeiro", Task: "consultar saldo"},
	}

	if _, err := Execute(context.Background(), st, gw, nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if gw.boundTools != 4 {
		t.Fatalf("expected 4 bound tools, got %d", gw.boundTools)
	}
}

// toolCallGateway scripts raw assistant messages so a step can request
// tools before answering.
type toolCallGateway struct {
	messages []*schema.Message
	calls    int
}

func (f *toolCallGateway) Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	f.calls++
	if f.calls > len(f.messages) {
		return nil, fmt.Errorf("no scripted message at call=%d", f.calls)
	}
	return f.messages[f.calls-1], nil
}

func (f *toolCallGateway) Invoke(ctx context.Context, messages []*schema.Message) (string, error) {
	msg, err := f.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (f *toolCallGateway) WithTools(tools []*schema.ToolInfo) (contractx.ModelGateway, error) {
	return f, nil
}

func (f *toolCallGateway) SupportsTools() bool { return true }

func (f *toolCallGateway) ModelID() string { return "fake-tool-model" }

func TestExecuteRunsRequestedTools(t *testing.T) {
	t.Parallel()

	gw := &toolCallGateway{messages: []*schema.Message{
		schema.AssistantMessage("", []schema.ToolCall{{
			ID: "call-1",
			Function: schema.FunctionCall{
				Name:      "describe_table",
				Arguments: `{"table": "rentabilidade"}`,
			},
		}}),
		schema.AssistantMessage("Rentabilidade média de 12,4% com base no esquema consultado.", nil),
		schema.AssistantMessage("Relatório consolidado com os dados da tabela de rentabilidade.", nil),
	}}

	var executed []string
	executor := func(ctx context.Context, tool string, args map[string]any) (toolx.Result, error) {
		executed = append(executed, tool)
		if args["table"] != "rentabilidade" {
			t.Errorf("unexpected tool args: %v", args)
		}
		return toolx.Result{Tool: tool, Output: "colunas: cliente_id, margem"}, nil
	}

	st := newResolvedState("qual a rentabilidade?")
	st.Plan = []contractx.PlanStep{
		{Agent: "RentabilidadeAgent", Domain: "rentabilidade", Task: "calcular"},
	}

	st, err := Execute(context.Background(), st, gw, executor)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(executed) != 1 || executed[0] != "describe_table" {
		t.Fatalf("unexpected tool executions: %v", executed)
	}
	if len(st.SubagentResponses) != 1 || !st.SubagentResponses[0].Success {
		t.Fatalf("unexpected responses: %+v", st.SubagentResponses)
	}
	if !strings.Contains(st.SubagentResponses[0].Response, "12,4%") {
		t.Fatalf("unexpected step answer: %q", st.SubagentResponses[0].Response)
	}
}

func TestExecuteToolRoundBound(t *testing.T) {
	t.Parallel()

	loop := schema.AssistantMessage("", []schema.ToolCall{{
		ID: "call-x",
		Function: schema.FunctionCall{
			Name:      "get_metadata",
			Arguments: `{}`,
		},
	}})
	gw := &toolCallGateway{messages: []*schema.Message{loop, loop, loop, loop, loop, loop}}

	st := newResolvedState("pergunta")
	st.Plan = []contractx.PlanStep{
		{Agent: "FinanceiroAgent", Domain: "financeiro", Task: "tarefa"},
	}

	st, err := Execute(context.Background(), st, gw, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if st.SubagentResponses[0].Success {
		t.Fatal("a step stuck in a tool loop must fail")
	}
	if !strings.Contains(st.SubagentResponses[0].Response, "tool rounds") {
		t.Fatalf("unexpected failure text: %q", st.SubagentResponses[0].Response)
	}
}

func TestVisualizeSkipsWhenNotRequested(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{}
	st := newResolvedState("pergunta")
	st.FinalReport = "relatório"

	st, err := Visualize(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("Visualize() error = %v", err)
	}
	if gw.calls != 0 {
		t.Fatalf("expected no model call, got %d", gw.calls)
	}
	if st.VisualizationSuggestion != "" || st.VisualizationData != nil {
		t.Fatal("expected no visualization output")
	}
}

func TestVisualizeStructuredProposal(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{
		`{"suggestion": "gráfico de barras por mês", "chart_type": "bar",
		  "labels": ["jan", "fev"], "values": [10.5, 12.4]}`,
	}}
	st := newResolvedState("mostre um gráfico")
	st.VisualizationRequested = true
	st.FinalReport = "janeiro 10,5%, fevereiro 12,4%"

	st, err := Visualize(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("Visualize() error = %v", err)
	}
	if st.VisualizationSuggestion != "gráfico de barras por mês" {
		t.Fatalf("unexpected suggestion: %q", st.VisualizationSuggestion)
	}
	if st.VisualizationData == nil || st.VisualizationData.ChartType != "bar" {
		t.Fatalf("unexpected data: %+v", st.VisualizationData)
	}
	if len(st.VisualizationData.Values) != 2 {
		t.Fatalf("unexpected values: %v", st.VisualizationData.Values)
	}
}

func TestVisualizeUnstructuredSuggestion(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{"um gráfico de linhas ficaria bom aqui"}}
	st := newResolvedState("pergunta com gráfico")
	st.VisualizationRequested = true
	st.FinalReport = "relatório"

	st, err := Visualize(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("Visualize() error = %v", err)
	}
	if st.VisualizationSuggestion == "" {
		t.Fatal("expected raw text kept as suggestion")
	}
	if st.VisualizationData != nil {
		t.Fatal("expected no structured data")
	}
}

func TestRespondFormatsAnswer(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{responses: []string{"A rentabilidade foi de 12,4% no trimestre."}}
	st := newResolvedState("qual a rentabilidade?")
	st.FinalReport = "relatório técnico"

	st, err := Respond(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if st.FinalResponse != "A rentabilidade foi de 12,4% no trimestre." {
		t.Fatalf("unexpected response: %q", st.FinalResponse)
	}
	if !st.MemoryStatus[statex.StatusResponseDelivered] {
		t.Fatal("expected delivery flag raised")
	}
}

func TestRespondDeliversRawReportOnFailure(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{err: errors.New("timeout")}
	st := newResolvedState("qual a rentabilidade?")
	st.FinalReport = "relatório técnico bruto"

	st, err := Respond(context.Background(), st, gw)
	if err != nil {
		t.Fatalf("Respond() must not propagate model errors, got %v", err)
	}
	if st.FinalResponse != "relatório técnico bruto" {
		t.Fatalf("expected raw report fallback, got %q", st.FinalResponse)
	}
	if !st.MemoryStatus[statex.StatusResponseDelivered] {
		t.Fatal("delivery flag must raise even on fallback")
	}
}

func TestPersistMemoryWritesResolutions(t *testing.T) {
	t.Parallel()

	mem := &fakeMemorizer{}
	st := newResolvedState("pergunta")
	st.Ambiguity.AmbiguitiesDetected = []contractx.Ambiguity{
		{Term: "clientes ativos", Resolution: "status ativo", Domain: "cadastro"},
		{Term: "", Resolution: "ignorado"},
	}

	st, err := PersistMemory(context.Background(), st, mem)
	if err != nil {
		t.Fatalf("PersistMemory() error = %v", err)
	}
	if len(mem.writes) != 1 {
		t.Fatalf("expected 1 write, got %d", len(mem.writes))
	}
	if mem.writes[0].term != "clientes ativos" || mem.writes[0].domain != "cadastro" {
		t.Fatalf("unexpected write: %+v", mem.writes[0])
	}
}

func TestPersistMemorySkipsWithoutIdentity(t *testing.T) {
	t.Parallel()

	mem := &fakeMemorizer{}
	st := statex.NewPipelineState("pergunta", nil, nil, "")
	st.Ambiguity.AmbiguitiesDetected = []contractx.Ambiguity{
		{Term: "termo", Resolution: "significado"},
	}

	if _, err := PersistMemory(context.Background(), st, mem); err != nil {
		t.Fatalf("PersistMemory() error = %v", err)
	}
	if len(mem.writes) != 0 {
		t.Fatalf("expected no writes without identity, got %d", len(mem.writes))
	}
}
