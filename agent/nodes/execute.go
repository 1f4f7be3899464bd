package pipelinenode

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/insigna-ai/maestro/agent/catalog"
	contractx "github.com/insigna-ai/maestro/agent/contract"
	statex "github.com/insigna-ai/maestro/agent/state"
	toolx "github.com/insigna-ai/maestro/agent/tool"
)

const emptyPlanReport = "Nenhum agente pôde ser acionado para esta pergunta. " +
	"Reformule a pergunta ou indique o domínio desejado."

// maxToolRounds bounds the tool call loop of a single step; a model that
// keeps requesting tools past this is cut off with whatever it said last.
const maxToolRounds = 4

// Execute runs every plan step against its sub-agent and consolidates the
// partial answers into the final report. One failing step never aborts the
// stage; its failure is kept as a partial result and consolidation works
// with whatever succeeded.
func Execute(
	ctx context.Context,
	in *statex.PipelineState,
	gw contractx.ModelGateway,
	tools toolx.Executor,
) (*statex.PipelineState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: execute", ErrNilState)
	}
	if tools == nil {
		tools = toolx.DefaultExecutor()
	}

	steps := orderedSteps(in.Plan)
	if len(steps) == 0 {
		in.FinalReport = emptyPlanReport
		in.RecordStage("execute", true, "empty plan", "")
		return in, nil
	}

	stepGateway := gatewayForSteps(gw)

	for _, step := range steps {
		result := runStep(ctx, stepGateway, tools, in, step)
		in.SubagentResponses = append(in.SubagentResponses, result)
		in.Sources = appendSource(in.Sources, result.Agent)
	}

	in.FinalReport = consolidate(ctx, gw, in)
	in.RecordStage("execute", true,
		fmt.Sprintf("%d steps, %d sources", len(steps), len(in.Sources)), "")
	return in, nil
}

// orderedSteps sorts by ascending priority, keeping plan order for ties, and
// drops the visualization marker step which the visualization stage owns.
func orderedSteps(plan []contractx.PlanStep) []contractx.PlanStep {
	steps := make([]contractx.PlanStep, 0, len(plan))
	for _, step := range plan {
		if strings.EqualFold(strings.TrimSpace(step.Agent), catalog.VisualizationAgentName) {
			continue
		}
		steps = append(steps, step)
	}
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority < steps[j].Priority
	})
	return steps
}

// gatewayForSteps binds the analysis tool catalog when the model can call
// tools. Binding failure is not fatal; steps run without tools.
func gatewayForSteps(gw contractx.ModelGateway) contractx.ModelGateway {
	if !gw.SupportsTools() {
		return gw
	}
	bound, err := gw.WithTools(toolx.Catalog())
	if err != nil {
		log.Warn().Err(err).Msg("tool binding failed, running steps without tools")
		return gw
	}
	return bound
}

func runStep(
	ctx context.Context,
	gw contractx.ModelGateway,
	tools toolx.Executor,
	in *statex.PipelineState,
	step contractx.PlanStep,
) contractx.AgentResult {
	cfg, ok := catalog.ByAgentName(step.Agent)
	if !ok {
		cfg, ok = catalog.ByTheme(step.Domain)
	}
	if !ok {
		return contractx.AgentResult{
			Agent:    strings.TrimSpace(step.Agent),
			Response: fmt.Sprintf("agente desconhecido para o domínio %q", step.Domain),
			Success:  false,
		}
	}

	messages := []*schema.Message{
		schema.SystemMessage(cfg.SystemPrompt),
		schema.UserMessage(stepPrompt(in, step)),
	}

	content, err := stepConversation(ctx, gw, tools, messages)
	if err != nil {
		log.Warn().Err(err).Str("agent", cfg.Name).Msg("plan step failed")
		return contractx.AgentResult{
			Agent:    cfg.Name,
			Response: fmt.Sprintf("falha na execução: %v", err),
			Success:  false,
		}
	}

	return contractx.AgentResult{
		Agent:    cfg.Name,
		Response: strings.TrimSpace(content),
		Success:  true,
	}
}

// stepConversation drives one step's exchange with the model, executing any
// requested tools and feeding their results back until the model answers in
// text or the round bound is hit.
func stepConversation(
	ctx context.Context,
	gw contractx.ModelGateway,
	tools toolx.Executor,
	messages []*schema.Message,
) (string, error) {
	for round := 0; round < maxToolRounds; round++ {
		msg, err := gw.Chat(ctx, messages)
		if err != nil {
			return "", err
		}
		if msg == nil || len(msg.ToolCalls) == 0 {
			return messageContent(msg), nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			messages = append(messages, toolResultMessage(ctx, tools, call))
		}
	}
	return "", fmt.Errorf("step exceeded %d tool rounds", maxToolRounds)
}

func toolResultMessage(ctx context.Context, tools toolx.Executor, call schema.ToolCall) *schema.Message {
	var args map[string]any
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			log.Warn().Err(err).Str("tool", call.Function.Name).Msg("tool arguments unparseable")
		}
	}

	result, err := tools(ctx, call.Function.Name, args)
	if err != nil {
		result = toolx.Result{Tool: call.Function.Name, Error: err.Error()}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"tool": %q, "error": "serialização falhou"}`, call.Function.Name))
	}
	return schema.ToolMessage(string(payload), call.ID)
}

func messageContent(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	return msg.Content
}

func stepPrompt(in *statex.PipelineState, step contractx.PlanStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tarefa delegada:\n%s\n", step.Task)
	fmt.Fprintf(&b, "\nPergunta original do usuário:\n%s\n", in.NormalizedQuery)
	if len(in.GroupContext) > 0 {
		fmt.Fprintf(&b, "\nContexto do grupo: %v\n", in.GroupContext)
	}
	return b.String()
}

// consolidate merges the partial answers into one report. When the
// consolidation call fails the partials are concatenated verbatim so the
// critic still has something to judge.
func consolidate(ctx context.Context, gw contractx.ModelGateway, in *statex.PipelineState) string {
	content, err := gw.Invoke(ctx, []*schema.Message{
		schema.SystemMessage("Você consolida respostas parciais de múltiplos agentes em um relatório único, coeso e em português."),
		schema.UserMessage(consolidationPrompt(in)),
	})
	if err != nil || strings.TrimSpace(content) == "" {
		log.Warn().Err(err).Msg("consolidation failed, concatenating partial answers")
		return concatenateResults(in.SubagentResponses)
	}
	return strings.TrimSpace(content)
}

func consolidationPrompt(in *statex.PipelineState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pergunta do usuário:\n%s\n\nRespostas parciais:\n", in.NormalizedQuery)
	for _, r := range in.SubagentResponses {
		status := "ok"
		if !r.Success {
			status = "falhou"
		}
		fmt.Fprintf(&b, "\n[%s - %s]\n%s\n", r.Agent, status, r.Response)
	}
	b.WriteString("\nProduza um relatório consolidado respondendo à pergunta.")
	return b.String()
}

func concatenateResults(results []contractx.AgentResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**%s**:\n%s", r.Agent, r.Response)
	}
	return b.String()
}

func appendSource(sources []string, agent string) []string {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return sources
	}
	for _, s := range sources {
		if s == agent {
			return sources
		}
	}
	return append(sources, agent)
}
