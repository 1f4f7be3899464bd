// Package tool declares the warehouse tool surface exposed to tool-capable
// models. The actual SQL/warehouse client is wired in by the embedding
// application; the default executor only reports that tools are offline.
package tool

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
)

const (
	ToolDescribeTable = "describe_table"
	ToolSampleData    = "sample_data"
	ToolRunSQL        = "run_sql"
	ToolGetMetadata   = "get_metadata"
)

// Result carries one tool execution outcome back to the executor stage.
type Result struct {
	Tool   string `json:"tool"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Executor runs one named tool with its arguments.
type Executor func(ctx context.Context, tool string, args map[string]any) (Result, error)

// Catalog returns the warehouse tool specs bound to tool-capable models.
func Catalog() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: ToolDescribeTable,
			Desc: "Retorna o esquema (colunas e tipos) de uma tabela do warehouse.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"table": {Type: schema.String, Desc: "Nome qualificado da tabela", Required: true},
			}),
		},
		{
			Name: ToolSampleData,
			Desc: "Retorna uma amostra de linhas de uma tabela.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"table": {Type: schema.String, Desc: "Nome qualificado da tabela", Required: true},
				"limit": {Type: schema.Integer, Desc: "Número máximo de linhas", Required: false},
			}),
		},
		{
			Name: ToolRunSQL,
			Desc: "Executa uma consulta SQL somente leitura no warehouse.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "Consulta SQL", Required: true},
			}),
		},
		{
			Name: ToolGetMetadata,
			Desc: "Lista tabelas e descrições disponíveis no catálogo de dados.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"theme": {Type: schema.String, Desc: "Tema para filtrar o catálogo", Required: false},
			}),
		},
	}
}

// DefaultExecutor is used when no warehouse client is configured. It keeps
// the pipeline running: the step result carries the unavailability message
// instead of aborting the plan.
func DefaultExecutor() Executor {
	return func(ctx context.Context, toolName string, args map[string]any) (Result, error) {
		return Result{
			Tool:  toolName,
			Error: fmt.Sprintf("ferramenta %s indisponível: nenhum cliente de warehouse configurado", toolName),
		}, nil
	}
}
