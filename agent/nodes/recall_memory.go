package pipelinenode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/insigna-ai/maestro/agent/contract"
	statex "github.com/insigna-ai/maestro/agent/state"
)

const recallLimit = 5

// RecallMemory loads past ambiguity resolutions for the caller's identity
// into the pipeline state. A nil memorizer means memory is disabled for this
// run; the stage still marks the context as loaded so the rest of the
// pipeline behaves uniformly.
func RecallMemory(
	ctx context.Context,
	in *statex.PipelineState,
	memory contractx.Memorizer,
) (*statex.PipelineState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: recall_memory", ErrNilState)
	}

	in.MarkStatus(statex.StatusContextLoaded)

	if memory == nil {
		in.RecordStage("recall_memory", true, "memory disabled", "")
		return in, nil
	}

	in.MemoryContext = memory.RecallResolutions(ctx, in.OriginalQuery, recallLimit)
	in.MarkStatus(statex.StatusMemoryConsulted)

	log.Debug().
		Str("identity", in.Identity).
		Int("recalled", len(in.MemoryContext)).
		Msg("memory recall complete")

	in.RecordStage("recall_memory", true, fmt.Sprintf("%d entries", len(in.MemoryContext)), "")
	return in, nil
}
