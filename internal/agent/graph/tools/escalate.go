package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
)

// ===================================
// Escalate To Human Tool
// ===================================

type EscalateInput struct {
	Reason string `json:"reason,omitempty"`
}

type EscalateOutput struct {
	Escalated bool   `json:"escalated"`
	Reason    string `json:"reason"`
}

func createEscalateTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolEscalateToHuman,
			Desc: "Hand the conversation over to a human recruiter. This ends your turn immediately; use it when the candidate asks for a person, raises a complaint, or you cannot help with the available tools.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"reason": {
					Type: "string",
					Desc: "Short reason for the handoff, shown to the human recruiter.",
				},
			}),
		},
		func(ctx context.Context, in *EscalateInput) (*EscalateOutput, error) {
			reason := strings.TrimSpace(in.Reason)
			if reason == "" {
				reason = "candidate requested human assistance"
			}
			return &EscalateOutput{Escalated: true, Reason: reason}, nil
		},
	)
}
