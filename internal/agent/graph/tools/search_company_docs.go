package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/leadline-ai/engine/internal/agent/model"
	"github.com/leadline-ai/engine/internal/agent/retrieval"
)

// ===================================
// Search Company Docs Tool
// ===================================

type SearchCompanyDocsInput struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

func createSearchCompanyDocsTool(engine *retrieval.Engine) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchCompanyDocs,
			Desc: "Search company documents: policies, benefits, culture, onboarding and FAQ material. Returns ranked excerpts with source IDs. Use this when the candidate asks about the company rather than a specific posting.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Search text describing what the candidate wants to know about the company.",
					Required: true,
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum number of excerpts to return (default from configuration).",
				},
			}),
		},
		func(ctx context.Context, in *SearchCompanyDocsInput) (*SearchChunksOutput, error) {
			if in.Query == "" {
				return nil, fmt.Errorf("query is required")
			}
			chunks, err := engine.Search(ctx, model.CorpusCompanyDocs, in.Query, 0, in.MaxResults)
			if err != nil {
				return nil, err
			}
			return &SearchChunksOutput{Chunks: chunks, Total: len(chunks)}, nil
		},
	)
}
