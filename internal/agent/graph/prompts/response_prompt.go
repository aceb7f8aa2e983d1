package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/leadline-ai/engine/internal/agent/graph/tools"
	"github.com/leadline-ai/engine/internal/agent/model"
)

//go:embed template/response_prompt.txt
var coreSystemPrompt string

// RenderResponseSystem renders the dynamic response system prompt and
// triggers prompt callbacks.
func RenderResponseSystem(ctx context.Context, config model.ResponsePromptConfig, intent string) (string, error) {
	intent = strings.TrimSpace(intent)
	if intent == "" {
		intent = "inquiry_intent"
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(coreSystemPrompt),
	)
	vars := map[string]any{
		"BusinessType":       config.BusinessType,
		"BusinessName":       config.BusinessName,
		"Tone":               config.Tone,
		"Intent":             intent,
		"SearchPostingsTool": tools.ToolSearchJobPostings,
		"SearchDocsTool":     tools.ToolSearchCompanyDocs,
		"CalendarTool":       tools.ToolCheckCalendar,
		"EscalateTool":       tools.ToolEscalateToHuman,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("response prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("response prompt render: empty result")
	}
	return msgs[0].Content, nil
}
