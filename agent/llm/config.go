package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/insigna-ai/maestro/agent/contract"
)

// Config carries provider credentials and per-stage model selection. Loaded
// through pkg/config with the MAESTRO_LLM prefix.
type Config struct {
	DatabricksHost  string `envconfig:"DATABRICKS_HOST" split_words:"true"`
	DatabricksToken string `envconfig:"DATABRICKS_TOKEN" split_words:"true"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY" split_words:"true"`

	Model              string        `envconfig:"MODEL" split_words:"true"`
	EmbeddingModel     string        `envconfig:"EMBEDDING_MODEL" split_words:"true" default:"text-embedding-3-small"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"4096"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`

	// Per-stage overrides; empty means the default Model.
	AmbiguityModel string `envconfig:"AMBIGUITY_MODEL" split_words:"true"`
	PlannerModel   string `envconfig:"PLANNER_MODEL" split_words:"true"`
	ExecutorModel  string `envconfig:"EXECUTOR_MODEL" split_words:"true"`
	CriticModel    string `envconfig:"CRITIC_MODEL" split_words:"true"`
	ResponseModel  string `envconfig:"RESPONSE_MODEL" split_words:"true"`
}

// ProviderAvailable reports whether the credentials for a provider are set.
func (c Config) ProviderAvailable(p Provider) bool {
	switch p {
	case ProviderDatabricks:
		return strings.TrimSpace(c.DatabricksHost) != "" && strings.TrimSpace(c.DatabricksToken) != ""
	case ProviderOpenAI:
		return strings.TrimSpace(c.OpenAIAPIKey) != ""
	default:
		return false
	}
}

// ResolveModel picks the model for a stage, falling back to the configured
// default and then to DefaultModel, and verifies that the model exists and
// its provider is configured. A broken provider configuration fails here,
// loudly, before any query runs.
func (c Config) ResolveModel(override string) (string, ModelSpec, error) {
	id := strings.TrimSpace(override)
	if id == "" {
		id = strings.TrimSpace(c.Model)
	}
	if id == "" {
		id = DefaultModel
	}

	spec, err := LookupModel(id)
	if err != nil {
		return "", ModelSpec{}, err
	}
	if !c.ProviderAvailable(spec.Provider) {
		return "", ModelSpec{}, fmt.Errorf("%w: provider=%s model=%s", contract.ErrProviderUnavailable, spec.Provider, id)
	}
	return id, spec, nil
}
