package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ModelGateway is the single contract the pipeline has with a chat model.
// Invoke returns content already normalized to plain text; provider-specific
// content shapes never leak past the gateway boundary.
type ModelGateway interface {
	Invoke(ctx context.Context, messages []*schema.Message) (string, error)

	// Chat returns the raw assistant message. Needed by callers that must
	// see tool calls; everyone else should use Invoke.
	Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error)

	// WithTools returns a variant of the gateway with tool specs bound.
	// Callers must check SupportsTools first; binding on a model without
	// tool support is a schema violation.
	WithTools(tools []*schema.ToolInfo) (ModelGateway, error)

	SupportsTools() bool
	ModelID() string
}

// Memorizer mediates every pipeline access to long-term memory. A nil or
// no-op implementation is valid: sessions without an identity run the full
// pipeline with memory recall and persistence disabled.
type Memorizer interface {
	RecallResolutions(ctx context.Context, query string, limit int) []MemoryContextEntry
	MemorizeResolution(ctx context.Context, term, resolution, domain string) (string, bool)
}
