package tools

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/leadline-ai/engine/internal/agent/model"
)

// ===================================
// Check Calendar Availability Tool
// ===================================

type CheckCalendarInput struct {
	Days int `json:"days,omitempty"`
}

type CheckCalendarOutput struct {
	Slots []string `json:"slots"`
	Total int      `json:"total"`
}

func createCheckCalendarTool(cal model.Calendar) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCheckCalendar,
			Desc: "Check interviewer availability for the next business days. Returns bookable interview slots. Use this when the candidate wants to schedule or reschedule an interview.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"days": {
					Type: "number",
					Desc: "How many business days ahead to look (default 5, max 10).",
				},
			}),
		},
		func(ctx context.Context, in *CheckCalendarInput) (*CheckCalendarOutput, error) {
			days := in.Days
			if days <= 0 {
				days = 5
			}
			if days > 10 {
				days = 10
			}
			slots, err := cal.Available(ctx, time.Now(), days)
			if err != nil {
				return nil, err
			}
			out := &CheckCalendarOutput{Total: len(slots)}
			for _, s := range slots {
				out.Slots = append(out.Slots, s.Start.Format("Mon Jan 2 15:04"))
			}
			return out, nil
		},
	)
}
