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
// Search Job Postings Tool
// ===================================

type SearchJobPostingsInput struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

type SearchChunksOutput struct {
	Chunks []model.RetrievedChunk `json:"chunks"`
	Total  int                    `json:"total"`
}

func createSearchJobPostingsTool(engine *retrieval.Engine) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearchJobPostings,
			Desc: "Search currently open job postings by keyword or description. Returns ranked excerpts of matching postings with source IDs. Use this whenever the candidate asks about roles, openings, requirements or positions.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "Search text describing the role, skills or requirements the candidate is asking about.",
					Required: true,
				},
				"max_results": {
					Type: "number",
					Desc: "Maximum number of excerpts to return (default from configuration).",
				},
			}),
		},
		func(ctx context.Context, in *SearchJobPostingsInput) (*SearchChunksOutput, error) {
			if in.Query == "" {
				return nil, fmt.Errorf("query is required")
			}
			chunks, err := engine.Search(ctx, model.CorpusJobPostings, in.Query, 0, in.MaxResults)
			if err != nil {
				return nil, err
			}
			return &SearchChunksOutput{Chunks: chunks, Total: len(chunks)}, nil
		},
	)
}
