package pipelinenode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/insigna-ai/maestro/agent/contract"
	statex "github.com/insigna-ai/maestro/agent/state"
)

// PersistMemory writes the resolved ambiguities of this run back to the
// caller's long-term memory. The store applies its own write gate and
// deduplication, so replayed resolutions do not accumulate.
func PersistMemory(
	ctx context.Context,
	in *statex.PipelineState,
	memory contractx.Memorizer,
) (*statex.PipelineState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: persist_memory", ErrNilState)
	}

	if memory == nil || in.Identity == "" {
		in.RecordStage("persist_memory", true, "memory disabled", "")
		return in, nil
	}

	var written int
	for _, amb := range in.Ambiguity.AmbiguitiesDetected {
		if amb.Term == "" || amb.Resolution == "" {
			continue
		}
		if _, stored := memory.MemorizeResolution(ctx, amb.Term, amb.Resolution, amb.Domain); stored {
			written++
		}
	}

	log.Debug().
		Str("identity", in.Identity).
		Int("written", written).
		Int("candidates", len(in.Ambiguity.AmbiguitiesDetected)).
		Msg("memory persistence complete")

	in.RecordStage("persist_memory", true, fmt.Sprintf("%d written", written), "")
	return in, nil
}
