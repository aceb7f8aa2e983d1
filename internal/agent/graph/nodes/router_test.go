package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-ai/engine/internal/agent/model"
)

func testRouterConfig() model.RouterConfig {
	return model.RouterConfig{
		Intents:            "greet:0.3, apply_intent:0.9, inquiry_intent:0.7, schedule_intent:0.8, handoff_intent:0.9",
		Keywords:           "greet=hello|hi|hey;apply_intent=apply|job|position|role;inquiry_intent=salary|benefit|remote;schedule_intent=schedule|interview;handoff_intent=human|person|complaint",
		Fallback:           "inquiry_intent",
		FallbackConfidence: 0.4,
	}
}

func stateWithUserText(text string) *model.ConversationState {
	s := model.NewConversationState("t-1")
	s.Apply(model.StateUpdate{
		AppendHistory: []model.Message{{Role: model.RoleUser, Text: text, Timestamp: time.Now()}},
		UserTurns:     1,
	})
	return s
}

func TestRouterClassifiesByKeyword(t *testing.T) {
	node := NewRouterNode(testRouterConfig())

	update, err := node(context.Background(), stateWithUserText("I'd like to APPLY for the backend position"))
	require.NoError(t, err)
	require.NotNil(t, update.Intent)
	assert.Equal(t, "apply_intent", *update.Intent)
	assert.Equal(t, 0.9, *update.IntentConfidence)
}

func TestRouterMatchIsCaseInsensitive(t *testing.T) {
	node := NewRouterNode(testRouterConfig())

	update, err := node(context.Background(), stateWithUserText("What's the SALARY range?"))
	require.NoError(t, err)
	assert.Equal(t, "inquiry_intent", *update.Intent)
}

func TestRouterFirstListedIntentWins(t *testing.T) {
	node := NewRouterNode(testRouterConfig())

	// Both greet and schedule keywords appear; the intent listed first wins.
	update, err := node(context.Background(), stateWithUserText("hi, can we schedule an interview?"))
	require.NoError(t, err)
	assert.Equal(t, "greet", *update.Intent)
}

func TestRouterFallsBackWhenNothingMatches(t *testing.T) {
	node := NewRouterNode(testRouterConfig())

	update, err := node(context.Background(), stateWithUserText("qwerty asdf"))
	require.NoError(t, err)
	assert.Equal(t, "inquiry_intent", *update.Intent)
	assert.Equal(t, 0.4, *update.IntentConfidence)
}

func TestRouterHandoffIntent(t *testing.T) {
	node := NewRouterNode(testRouterConfig())

	update, err := node(context.Background(), stateWithUserText("I want to talk to a real person"))
	require.NoError(t, err)
	assert.Equal(t, "handoff_intent", *update.Intent)
}

func TestScorerRoutingCondition(t *testing.T) {
	cond := NewScorerRoutingCondition(2)
	ctx := context.Background()

	s := stateWithUserText("first message")
	assert.Equal(t, NodeResponder, cond(ctx, s))

	s.Apply(model.StateUpdate{
		AppendHistory: []model.Message{{Role: model.RoleUser, Text: "second"}},
		UserTurns:     1,
	})
	assert.Equal(t, NodeScorer, cond(ctx, s))

	// Once scored, accrual starts over.
	scored := s.UserTurns
	s.Apply(model.StateUpdate{ScoredTurns: &scored})
	assert.Equal(t, NodeResponder, cond(ctx, s))
}

func TestScorerRoutingConditionSkipsScoringOnHandoff(t *testing.T) {
	cond := NewScorerRoutingCondition(1)

	s := stateWithUserText("get me a human")
	s.Intent = "handoff_intent"
	assert.Equal(t, NodeResponder, cond(context.Background(), s))
}

func TestScorerRetryCondition(t *testing.T) {
	cond := NewScorerRetryCondition(2)
	ctx := context.Background()

	s := model.NewConversationState("t-1")
	s.ErrorOccurred = true
	s.ExtractionAttempts = 1
	assert.Equal(t, NodeScorer, cond(ctx, s))

	s.ExtractionAttempts = 2
	assert.Equal(t, NodeResponder, cond(ctx, s))

	s.ErrorOccurred = false
	s.ExtractionAttempts = 1
	assert.Equal(t, NodeResponder, cond(ctx, s))
}
