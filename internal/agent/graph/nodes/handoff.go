package nodes

import (
	"context"

	"github.com/leadline-ai/engine/internal/agent/model"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// NewHumanHandoffNode writes the handoff acknowledgement. It runs whenever
// escalation is flagged, including on steps after the flag was first set,
// so a thread a human has taken over keeps answering with the handoff
// message instead of resuming automation.
func NewHumanHandoffNode() NodeFunc {
	return func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		logx.Info().
			Str("thread_id", s.ThreadID).
			Str("intent", s.Intent).
			Msg("conversation handed off to human recruiter")

		return model.StateUpdate{
			Reply:         strPtr(HandoffReply),
			Escalate:      boolPtr(true),
			AppendHistory: []model.Message{assistantMessage(HandoffReply)},
		}, nil
	}
}

// NewErrorHandlerNode absorbs an uncaught node failure: it logs the
// reason, clears the error flag, and turns the step into an escalation
// with a generic reply. The reply never carries internal error detail.
func NewErrorHandlerNode() NodeFunc {
	return func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		logx.Error().
			Str("thread_id", s.ThreadID).
			Str("reason", s.ErrorReason).
			Msg("step failed, escalating to human")

		return model.StateUpdate{
			ErrorOccurred: boolPtr(false),
			ErrorReason:   strPtr(""),
			Escalate:      boolPtr(true),
			Reply:         strPtr(FallbackReply),
			AppendHistory: []model.Message{assistantMessage(FallbackReply)},
		}, nil
	}
}
