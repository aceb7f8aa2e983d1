package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sethvargo/go-retry"

	"github.com/leadline-ai/engine/internal/agent/graph/conversations"
	"github.com/leadline-ai/engine/internal/agent/graph/prompts"
	"github.com/leadline-ai/engine/internal/agent/graph/tools"
	"github.com/leadline-ai/engine/internal/agent/model"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// ToolExecutor runs one named tool call and returns its output together
// with the audit record written for the invocation.
type ToolExecutor interface {
	Execute(ctx context.Context, threadID, name, argumentsJSON string) (string, model.ToolInvocationRecord)
}

// ResponderConfig wires the response model and its collaborators into the
// responder node.
type ResponderConfig struct {
	ChatModel einomodel.BaseChatModel
	ModelName string
	Tools     ToolExecutor
	Prompt    model.ResponsePromptConfig
	Context   *conversations.ContextBuilder

	MaxToolPasses int
	Timeout       time.Duration
	MaxRetries    int
}

// NewResponderNode drives the response model through its tool loop and
// produces the outbound reply. One tool call is incorporated per pass; the
// pass budget is enforced with a wrap-up notice first and a forced answer
// second, so the loop always terminates. Model failure after retries
// degrades to a canned reply plus escalation instead of failing the node.
func NewResponderNode(cfg ResponderConfig) NodeFunc {
	maxPasses := cfg.MaxToolPasses
	if maxPasses <= 0 {
		maxPasses = 4
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		systemPrompt, err := prompts.RenderResponseSystem(ctx, cfg.Prompt, s.Intent)
		if err != nil {
			return model.StateUpdate{}, fmt.Errorf("render response prompt: %w", err)
		}

		msgs := cfg.Context.BuildResponseContext(systemPrompt, s.History)

		var update model.StateUpdate
		passes := 0
		noticeSent := false

		for {
			out, gerr := generateWithRetry(ctx, cfg.ChatModel, msgs, timeout, cfg.MaxRetries)
			if gerr != nil {
				logx.Error().
					Str("thread_id", s.ThreadID).
					Err(gerr).
					Msg("response model failed after retries")
				reason := gerr.Error()
				update.Reply = strPtr(FallbackReply)
				update.Escalate = boolPtr(true)
				update.ErrorOccurred = boolPtr(true)
				update.ErrorReason = &reason
				update.AppendHistory = []model.Message{assistantMessage(FallbackReply)}
				return update, nil
			}

			usage := model.UsageFromMessage(out, cfg.ModelName)
			update.TokensUsed += usage.TotalTokens
			update.CostUSD += usage.CostUSD

			if len(out.ToolCalls) == 0 {
				reply := strings.TrimSpace(out.Content)
				if reply == "" {
					reply = FallbackReply
				}
				update.Reply = &reply
				update.AppendHistory = []model.Message{assistantMessage(reply)}
				return update, nil
			}

			tc := out.ToolCalls[0]
			if tc.ID == "" {
				tc.ID = fmt.Sprintf("call_%d", passes)
				out.ToolCalls[0].ID = tc.ID
			}

			if tc.Function.Name == tools.ToolEscalateToHuman {
				_, rec := cfg.Tools.Execute(ctx, s.ThreadID, tc.Function.Name, tc.Function.Arguments)
				update.ToolPasses++
				update.Escalate = boolPtr(true)
				update.Extra = map[string]any{"handoff_reason": rec.Output}
				return update, nil
			}

			if noticeSent {
				// The model ignored the wrap-up notice; force an answer
				// from whatever content it produced alongside the call.
				reply := strings.TrimSpace(out.Content)
				if reply == "" {
					reply = FallbackReply
				}
				update.Reply = &reply
				update.AppendHistory = []model.Message{assistantMessage(reply)}
				return update, nil
			}

			result, rec := cfg.Tools.Execute(ctx, s.ThreadID, tc.Function.Name, tc.Function.Arguments)
			if !rec.Success {
				result = fmt.Sprintf(`{"error":%q}`, rec.Error)
			}
			msgs = append(msgs, out, schema.ToolMessage(result, tc.ID))
			update.ToolPasses++
			passes++

			if passes >= maxPasses {
				msgs = append(msgs, schema.SystemMessage(wrapUpNotice(maxPasses)))
				noticeSent = true
				logx.Debug().
					Str("thread_id", s.ThreadID).
					Int("passes", passes).
					Msg("tool pass budget reached, asking model to wrap up")
			}
		}
	}
}

func generateWithRetry(ctx context.Context, chatModel einomodel.BaseChatModel, msgs []*schema.Message, timeout time.Duration, maxRetries int) (*schema.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var out *schema.Message
	backoff := retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(300*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		m, err := chatModel.Generate(ctx, msgs)
		if err != nil {
			return retry.RetryableError(err)
		}
		out = m
		return nil
	})
	return out, err
}

func assistantMessage(text string) model.Message {
	return model.Message{
		Role:      model.RoleAssistant,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}
