package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	nodex "github.com/insigna-ai/maestro/agent/nodes"
	statex "github.com/insigna-ai/maestro/agent/state"
)

func (p *Pipeline) compileProcessQueryGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*statex.PipelineState, error) {
			return nodex.ValidateRequest(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("recall_memory",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (*statex.PipelineState, error) {
			return nodex.RecallMemory(ctx, in, p.memorizerFor(in.Identity))
		}),
	); err != nil {
		return nil, fmt.Errorf("add node recall_memory: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_ambiguity",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (*statex.PipelineState, error) {
			return nodex.ResolveAmbiguity(ctx, in, p.gateways.Resolver)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_ambiguity: %w", err)
	}

	if err := graph.AddLambdaNode("plan",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (*statex.PipelineState, error) {
			return nodex.Plan(ctx, in, p.gateways.Planner)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node plan: %w", err)
	}

	if err := graph.AddLambdaNode("execute",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (*statex.PipelineState, error) {
			return nodex.Execute(ctx, in, p.gateways.Executor, p.tools)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute: %w", err)
	}

	if err := graph.AddLambdaNode("visualize",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (*statex.PipelineState, error) {
			return nodex.Visualize(ctx, in, p.gateways.Executor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node visualize: %w", err)
	}

	if err := graph.AddLambdaNode("critique",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (*statex.PipelineState, error) {
			return nodex.Critique(ctx, in, p.gateways.Critic)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node critique: %w", err)
	}

	if err := graph.AddLambdaNode("respond",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (*statex.PipelineState, error) {
			return nodex.Respond(ctx, in, p.gateways.Responder)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node respond: %w", err)
	}

	if err := graph.AddLambdaNode("persist_memory",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (*statex.PipelineState, error) {
			return nodex.PersistMemory(ctx, in, p.memorizerFor(in.Identity))
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_memory: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *statex.PipelineState) (nodex.GraphOutput, error) {
			return nodex.Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "recall_memory"},
		{"recall_memory", "resolve_ambiguity"},
		{"resolve_ambiguity", "plan"},
		{"plan", "execute"},
		{"execute", "visualize"},
		{"visualize", "critique"},
		{"critique", "respond"},
		{"respond", "persist_memory"},
		{"persist_memory", "finalize"},
		{"finalize", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("pipeline.process_query"))
	if err != nil {
		return nil, fmt.Errorf("compile pipeline graph: %w", err)
	}
	return runner, nil
}
