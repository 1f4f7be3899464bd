package pipelinenode

import (
	"context"
	"fmt"

	contractx "github.com/insigna-ai/maestro/agent/contract"
	criticx "github.com/insigna-ai/maestro/agent/critic"
	statex "github.com/insigna-ai/maestro/agent/state"
)

// Critique attaches the critic verdict to the state. The verdict never
// blocks the pipeline; an invalid report still flows to the responder,
// which discloses the caveats to the user.
func Critique(
	ctx context.Context,
	in *statex.PipelineState,
	gw contractx.ModelGateway,
) (*statex.PipelineState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: critique", ErrNilState)
	}

	in.Validation = criticx.Evaluate(ctx, gw, in.NormalizedQuery, in.FinalReport)
	in.RecordStage("critique", true,
		fmt.Sprintf("valid=%t score=%d", in.Validation.IsValid, in.Validation.CompletenessScore), "")
	return in, nil
}
