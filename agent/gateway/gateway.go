// Package gateway wraps a chat model behind the single contract the
// pipeline depends on. Provider differences (content shapes, tool-call
// support, base URLs) stop here.
package gateway

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"

	"github.com/insigna-ai/maestro/agent/contract"
	llmx "github.com/insigna-ai/maestro/agent/llm"
)

type Gateway struct {
	model         einomodel.ToolCallingChatModel
	modelID       string
	supportsTools bool
}

var _ contract.ModelGateway = (*Gateway)(nil)

// New resolves the model for a stage and builds its chat client. Unknown
// models and missing provider credentials fail here, before any query is
// attempted; masking a broken provider behind a degraded answer is worse
// than an explicit startup error.
func New(ctx context.Context, cfg llmx.Config, modelOverride string) (*Gateway, error) {
	id, spec, err := cfg.ResolveModel(modelOverride)
	if err != nil {
		return nil, err
	}

	baseURL, apiKey := endpointFor(cfg, spec.Provider)

	maxTokens := cfg.MaxCompletionToken
	temperature := cfg.Temperature
	conf := &openaimodel.ChatModelConfig{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       spec.Endpoint,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
	}

	m, err := openaimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: create chat model for %s: %v", contract.ErrModelInvoke, id, err)
	}

	return &Gateway{
		model:         m,
		modelID:       id,
		supportsTools: spec.SupportsTools,
	}, nil
}

// endpointFor maps a provider to its OpenAI-compatible base URL and key.
// Databricks model serving exposes /serving-endpoints with the workspace
// token as bearer key.
func endpointFor(cfg llmx.Config, p llmx.Provider) (string, string) {
	switch p {
	case llmx.ProviderDatabricks:
		host := strings.TrimRight(strings.TrimSpace(cfg.DatabricksHost), "/")
		return host + "/serving-endpoints", strings.TrimSpace(cfg.DatabricksToken)
	default:
		return "", strings.TrimSpace(cfg.OpenAIAPIKey)
	}
}

func (g *Gateway) Invoke(ctx context.Context, messages []*schema.Message) (string, error) {
	msg, err := g.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return MessageText(msg), nil
}

func (g *Gateway) Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	msg, err := g.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", contract.ErrModelInvoke, g.modelID, err)
	}
	return msg, nil
}

func (g *Gateway) WithTools(tools []*schema.ToolInfo) (contract.ModelGateway, error) {
	if !g.supportsTools {
		return nil, fmt.Errorf("%w: model %s does not support tool binding", contract.ErrValidation, g.modelID)
	}
	bound, err := g.model.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools on %s: %v", contract.ErrModelInvoke, g.modelID, err)
	}
	return &Gateway{model: bound, modelID: g.modelID, supportsTools: g.supportsTools}, nil
}

func (g *Gateway) SupportsTools() bool {
	return g.supportsTools
}

func (g *Gateway) ModelID() string {
	return g.modelID
}

// MessageText normalizes a model message to plain text. A plain Content
// string wins; otherwise the multi-part content is flattened through the
// same block rules applied to untyped provider payloads.
func MessageText(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	if msg.Content != "" {
		return msg.Content
	}
	if len(msg.MultiContent) == 0 {
		return ""
	}

	blocks := make([]any, 0, len(msg.MultiContent))
	for _, part := range msg.MultiContent {
		if part.Text != "" {
			blocks = append(blocks, map[string]any{"text": part.Text})
			continue
		}
		blocks = append(blocks, map[string]any{"content": string(part.Type)})
	}
	return llmx.NormalizeContent(blocks)
}
