package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/leadline-ai/engine/internal/agent/model"
	"github.com/leadline-ai/engine/internal/agent/retrieval"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// Tool names exposed to the response model.
const (
	ToolSearchJobPostings = "search_job_postings"
	ToolSearchCompanyDocs = "search_company_docs"
	ToolCheckCalendar     = "check_calendar_availability"
	ToolEscalateToHuman   = "escalate_to_human"
)

// Deps are the collaborators the business tools close over.
type Deps struct {
	Retrieval *retrieval.Engine
	Calendar  model.Calendar
}

// Registry is the fixed set of named operations the conversational agent may
// invoke. It is stateless with respect to conversation state; every
// invocation, successful or not, is written to the audit trail before the
// agent proceeds.
type Registry struct {
	tools   map[string]tool.InvokableTool
	order   []string
	auditor model.ToolLog
	timeout time.Duration
}

// NewRegistry builds the registry with all four business tools.
func NewRegistry(deps Deps, auditor model.ToolLog, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &Registry{
		tools:   make(map[string]tool.InvokableTool),
		auditor: auditor,
		timeout: timeout,
	}
	r.register(ToolSearchJobPostings, createSearchJobPostingsTool(deps.Retrieval))
	r.register(ToolSearchCompanyDocs, createSearchCompanyDocsTool(deps.Retrieval))
	r.register(ToolCheckCalendar, createCheckCalendarTool(deps.Calendar))
	r.register(ToolEscalateToHuman, createEscalateTool())
	return r
}

func (r *Registry) register(name string, t tool.InvokableTool) {
	r.tools[name] = t
	r.order = append(r.order, name)
}

// Infos returns the tool schemas for binding to the response model.
func (r *Registry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info for %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Execute runs one tool call under the configured timeout and appends
// exactly one audit record, regardless of outcome. A failing tool is
// isolated: the record carries the error and the returned output is empty,
// but Execute itself never propagates the tool failure.
func (r *Registry) Execute(ctx context.Context, threadID, name, argumentsJSON string) (string, model.ToolInvocationRecord) {
	rec := model.ToolInvocationRecord{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		ToolName:  name,
		Input:     argumentsJSON,
		Timestamp: time.Now().UTC(),
	}

	start := time.Now()
	output, err := r.invoke(ctx, name, argumentsJSON)
	rec.Duration = time.Since(start)

	if err != nil {
		rec.Success = false
		rec.Error = err.Error()
		logx.Warn().
			Str("thread_id", threadID).
			Str("tool", name).
			Err(err).
			Msg("tool call failed")
	} else {
		rec.Success = true
		rec.Output = output
	}

	if aerr := r.auditor.Append(ctx, rec); aerr != nil {
		// The audit store being down must not abort the turn.
		logx.Error().
			Str("thread_id", threadID).
			Str("tool", name).
			Err(aerr).
			Msg("failed to append tool invocation record")
	}

	return rec.Output, rec
}

func (r *Registry) invoke(ctx context.Context, name, argumentsJSON string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		// Hallucinated or malformed tool calls are recorded, not fatal.
		return "", fmt.Errorf("unknown tool %q", name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return t.InvokableRun(ctx, argumentsJSON)
}
