package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	gatewayx "github.com/insigna-ai/maestro/agent/gateway"
	llmx "github.com/insigna-ai/maestro/agent/llm"
	memoryx "github.com/insigna-ai/maestro/agent/memory"
	"github.com/insigna-ai/maestro/agent/orchestrator"
	statex "github.com/insigna-ai/maestro/agent/state"
	toolx "github.com/insigna-ai/maestro/agent/tool"
	configx "github.com/insigna-ai/maestro/pkg/config"
	logx "github.com/insigna-ai/maestro/pkg/logger"
)

type AppConfig struct {
	MemoryDir string `envconfig:"MEMORY_DIR" split_words:"true" default:"data/memory"`
}

var (
	identityFlag = flag.String("identity", "default-user", "caller identity for long-term memory")
	domainsFlag  = flag.String("domains", "", "comma-separated active domains (cadastro, financeiro, rentabilidade)")
	traceFlag    = flag.Bool("trace", false, "print the full structured result instead of only the answer")
)

func main() {
	appCfg := configx.MustNew[AppConfig]("MAESTRO")
	logCfg := configx.MustNew[logx.Config]("MAESTRO_LOG")
	logx.Init(*logCfg)
	llmCfg := configx.MustNew[llmx.Config]("MAESTRO_LLM")

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "uso: maestro [flags] <pergunta>")
		fmt.Fprintf(os.Stderr, "modelos disponíveis: %s\n", strings.Join(llmx.ChatModels(), ", "))
		os.Exit(2)
	}

	ctx := context.Background()

	set, err := gatewayx.NewSet(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("model gateways unavailable")
	}

	pipe, err := orchestrator.New(orchestrator.Gateways{
		Resolver:  set.Resolver,
		Planner:   set.Planner,
		Executor:  set.Executor,
		Critic:    set.Critic,
		Responder: set.Responder,
	}, toolx.DefaultExecutor(), memoryService(appCfg, llmCfg), statex.NewSession())
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline construction failed")
	}

	result, err := pipe.ProcessQuery(ctx, *identityFlag, query, splitDomains(*domainsFlag), nil)
	if err != nil {
		log.Fatal().Err(err).Msg("query failed")
	}

	if *traceFlag {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatal().Err(err).Msg("result serialization failed")
		}
		fmt.Println(string(out))
		return
	}
	fmt.Println(result.Response)
}

// memoryService picks the embedding backend from the available credentials.
// Without an OpenAI key the deterministic hash embedder keeps long-term
// memory functional, only with weaker similarity search.
func memoryService(appCfg *AppConfig, llmCfg *llmx.Config) *memoryx.Service {
	var embedder memoryx.Embedder = memoryx.HashEmbedder{}
	if strings.TrimSpace(llmCfg.OpenAIAPIKey) != "" {
		embedder = memoryx.NewOpenAIEmbedder(llmCfg.OpenAIAPIKey, "", llmCfg.EmbeddingModel)
	}
	return memoryx.NewService(appCfg.MemoryDir, embedder)
}

func splitDomains(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	domains := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			domains = append(domains, p)
		}
	}
	return domains
}
