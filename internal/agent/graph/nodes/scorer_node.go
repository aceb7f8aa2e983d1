package nodes

import (
	"context"

	"github.com/leadline-ai/engine/internal/agent/model"
	"github.com/leadline-ai/engine/internal/agent/scorer"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// NewScorerNode runs structured extraction over the accumulated transcript
// and persists the qualification verdict. Extraction failure is degraded,
// never fatal: the step continues to the responder with error_occurred set
// and the previous extraction left in place. When the attempt budget is
// exhausted the degraded pending_review verdict is still persisted, so a
// lead whose extraction never succeeds is not left unscored.
func NewScorerNode(sc *scorer.Scorer, store model.QualificationStore, maxAttempts int) NodeFunc {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		result, profile, usage, err := sc.Extract(ctx, s.ThreadID, s.ConversationText())

		update := model.StateUpdate{
			ExtractionAttempts: 1,
			TokensUsed:         usage.TotalTokens,
			CostUSD:            usage.CostUSD,
		}

		if err != nil {
			reason := err.Error()
			update.ErrorOccurred = boolPtr(true)
			update.ErrorReason = &reason
			logx.Warn().
				Str("thread_id", s.ThreadID).
				Int("attempt", s.ExtractionAttempts+1).
				Err(err).
				Msg("extraction attempt failed")
			if s.ExtractionAttempts+1 >= maxAttempts {
				if uerr := store.Upsert(ctx, s.ThreadID, result); uerr != nil {
					logx.Error().
						Str("thread_id", s.ThreadID).
						Err(uerr).
						Msg("failed to persist degraded qualification result")
				}
			}
			return update, nil
		}

		if uerr := store.Upsert(ctx, s.ThreadID, result); uerr != nil {
			// The verdict is recomputed from the transcript on the next
			// scoring pass, so a failed write is logged and not fatal.
			logx.Error().
				Str("thread_id", s.ThreadID).
				Err(uerr).
				Msg("failed to persist qualification result")
		}

		scoredAt := s.UserTurns
		update.Extracted = profile
		update.ScoredTurns = &scoredAt
		update.ErrorOccurred = boolPtr(false)
		update.ErrorReason = strPtr("")
		update.Extra = map[string]any{
			"qualification_status": string(result.Status),
			"overall_score":        result.OverallScore,
		}
		return update, nil
	}
}

// NewScorerRetryCondition loops back into the scorer while the current
// step's extraction keeps failing and the attempt budget allows another
// try. The attempt counter guard makes the loop finite.
func NewScorerRetryCondition(maxAttempts int) BranchFunc {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return func(ctx context.Context, s *model.ConversationState) NodeID {
		if s.ErrorOccurred && s.ExtractionAttempts < maxAttempts {
			return NodeScorer
		}
		return NodeResponder
	}
}
