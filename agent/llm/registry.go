package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/insigna-ai/maestro/agent/contract"
)

type Provider string

const (
	ProviderDatabricks Provider = "databricks"
	ProviderOpenAI     Provider = "openai"
)

type Task string

const (
	TaskChat      Task = "chat"
	TaskEmbedding Task = "embedding"
)

// ModelSpec is the declarative configuration of one serving endpoint.
type ModelSpec struct {
	Provider      Provider
	DisplayName   string
	Task          Task
	Endpoint      string
	Enabled       bool
	SupportsTools bool
	Description   string
}

// DefaultModel is used when the caller does not pick a model explicitly.
const DefaultModel = "databricks-meta-llama-3-3-70b-instruct"

// registry maps model identifiers to their specs. Databricks model-serving
// endpoints speak the OpenAI chat protocol but reject tool binding, so
// SupportsTools stays false for them.
var registry = map[string]ModelSpec{
	"databricks-meta-llama-3-3-70b-instruct": {
		Provider:    ProviderDatabricks,
		DisplayName: "Llama 3.3 70B Instruct",
		Task:        TaskChat,
		Endpoint:    "databricks-meta-llama-3-3-70b-instruct",
		Enabled:     true,
	},
	"databricks-meta-llama-3-1-8b-instruct": {
		Provider:    ProviderDatabricks,
		DisplayName: "Llama 3.1 8B Instruct",
		Task:        TaskChat,
		Endpoint:    "databricks-meta-llama-3-1-8b-instruct",
		Enabled:     true,
	},
	"databricks-gpt-oss-120b": {
		Provider:    ProviderDatabricks,
		DisplayName: "GPT-OSS 120B",
		Task:        TaskChat,
		Endpoint:    "databricks-gpt-oss-120b",
		Enabled:     true,
	},
	"databricks-qwen3-next-80b-a3b-instruct": {
		Provider:    ProviderDatabricks,
		DisplayName: "Qwen3 Next 80B Instruct",
		Task:        TaskChat,
		Endpoint:    "databricks-qwen3-next-80b-a3b-instruct",
		Enabled:     true,
	},
	"databricks-gte-large-en": {
		Provider:    ProviderDatabricks,
		DisplayName: "GTE Large EN",
		Task:        TaskEmbedding,
		Endpoint:    "databricks-gte-large-en",
		Enabled:     true,
	},
	"gpt-4o-mini": {
		Provider:      ProviderOpenAI,
		DisplayName:   "GPT-4o Mini",
		Task:          TaskChat,
		Endpoint:      "gpt-4o-mini",
		Enabled:       true,
		SupportsTools: true,
	},
	"gpt-4o": {
		Provider:      ProviderOpenAI,
		DisplayName:   "GPT-4o",
		Task:          TaskChat,
		Endpoint:      "gpt-4o",
		Enabled:       true,
		SupportsTools: true,
	},
	"text-embedding-3-small": {
		Provider:    ProviderOpenAI,
		DisplayName: "Text Embedding 3 Small",
		Task:        TaskEmbedding,
		Endpoint:    "text-embedding-3-small",
		Enabled:     true,
	},
}

// LookupModel returns the spec for a model identifier. An unknown or
// disabled model is a configuration error, never a silent fallback.
func LookupModel(modelID string) (ModelSpec, error) {
	id := strings.TrimSpace(modelID)
	spec, ok := registry[id]
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: %q", contract.ErrUnknownModel, modelID)
	}
	if !spec.Enabled {
		return ModelSpec{}, fmt.Errorf("%w: %q is disabled", contract.ErrUnknownModel, modelID)
	}
	return spec, nil
}

// ChatModels lists the enabled chat model identifiers, sorted for stable
// presentation.
func ChatModels() []string {
	ids := make([]string, 0, len(registry))
	for id, spec := range registry {
		if spec.Enabled && spec.Task == TaskChat {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
