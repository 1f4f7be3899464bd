package gateway

import (
	"context"
	"fmt"

	"github.com/insigna-ai/maestro/agent/contract"
	llmx "github.com/insigna-ai/maestro/agent/llm"
)

// Set holds one gateway per pipeline stage. Stages without a configured
// override all share the default model, but each keeps its own gateway so
// an override swaps a single stage without touching the rest.
type Set struct {
	Resolver  contract.ModelGateway
	Planner   contract.ModelGateway
	Executor  contract.ModelGateway
	Critic    contract.ModelGateway
	Responder contract.ModelGateway
}

// NewSet builds the per-stage gateways from configuration. Any unknown
// model or missing provider credential fails here, before the first query.
func NewSet(ctx context.Context, cfg llmx.Config) (*Set, error) {
	set := &Set{}
	stages := []struct {
		name     string
		override string
		target   *contract.ModelGateway
	}{
		{"resolver", cfg.AmbiguityModel, &set.Resolver},
		{"planner", cfg.PlannerModel, &set.Planner},
		{"executor", cfg.ExecutorModel, &set.Executor},
		{"critic", cfg.CriticModel, &set.Critic},
		{"responder", cfg.ResponseModel, &set.Responder},
	}

	for _, stage := range stages {
		gw, err := New(ctx, cfg, stage.override)
		if err != nil {
			return nil, fmt.Errorf("build %s gateway: %w", stage.name, err)
		}
		*stage.target = gw
	}
	return set, nil
}
