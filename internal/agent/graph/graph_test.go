package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadline-ai/engine/internal/agent/graph/nodes"
	"github.com/leadline-ai/engine/internal/agent/model"
)

type memCheckpoints struct {
	mu       sync.Mutex
	byThread map[string][]*model.Checkpoint
	saveErr  error
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{byThread: make(map[string][]*model.Checkpoint)}
}

func (m *memCheckpoints) Save(ctx context.Context, cp *model.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.byThread[cp.ThreadID] = append(m.byThread[cp.ThreadID], cp)
	return nil
}

func (m *memCheckpoints) LoadLatest(ctx context.Context, threadID string) (*model.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cps := m.byThread[threadID]
	if len(cps) == 0 {
		return nil, nil
	}
	return cps[len(cps)-1], nil
}

func (m *memCheckpoints) History(ctx context.Context, threadID string) ([]*model.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Checkpoint(nil), m.byThread[threadID]...), nil
}

func fakeRouter() nodes.NodeFunc {
	return func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		intent := "inquiry_intent"
		conf := 0.7
		return model.StateUpdate{Intent: &intent, IntentConfidence: &conf}, nil
	}
}

func fakeScorer(calls *int) nodes.NodeFunc {
	return func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		*calls++
		scored := s.UserTurns
		return model.StateUpdate{
			ExtractionAttempts: 1,
			ScoredTurns:        &scored,
			Extracted:          &model.CandidateProfile{FullName: "Maya", Confidence: 0.9},
		}, nil
	}
}

func fakeResponder(reply string, calls *int) nodes.NodeFunc {
	return func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		*calls++
		return model.StateUpdate{
			Reply:         &reply,
			AppendHistory: []model.Message{{Role: model.RoleAssistant, Text: reply}},
			TokensUsed:    50,
			CostUSD:       0.0001,
		}, nil
	}
}

func testGraphConfig(scorerCalls, responderCalls *int) *GraphConfig {
	var conv model.ConversationConfig
	conv.Extraction.MinNewTurns = 2
	conv.Extraction.MaxAttempts = 2
	conv.Step.MaxIterations = 12

	return &GraphConfig{
		Conversation:  conv,
		RouterNode:    fakeRouter(),
		ScorerNode:    fakeScorer(scorerCalls),
		ResponderNode: fakeResponder("Happy to help!", responderCalls),
	}
}

func newTestEngine(t *testing.T, cfg *GraphConfig, store model.CheckpointStore) *Engine {
	t.Helper()
	g, err := BuildGraph(cfg)
	require.NoError(t, err)
	return &Engine{graph: g, checkpoints: store}
}

func userMessage(threadID, text string) model.IncomingMessage {
	return model.IncomingMessage{ThreadID: threadID, SenderID: "u-1", Text: text, ChannelSource: "webchat"}
}

func TestBuildGraphValidation(t *testing.T) {
	_, err := BuildGraph(nil)
	assert.Error(t, err)

	var scorerCalls, responderCalls int
	cfg := testGraphConfig(&scorerCalls, &responderCalls)
	cfg.ResponderNode = nil
	_, err = BuildGraph(cfg)
	assert.Error(t, err)
}

func TestStepHappyPath(t *testing.T) {
	var scorerCalls, responderCalls int
	store := newMemCheckpoints()
	engine := newTestEngine(t, testGraphConfig(&scorerCalls, &responderCalls), store)

	reply, cp, err := engine.Step(context.Background(), userMessage("t-1", "hello"))
	require.NoError(t, err)

	assert.Equal(t, "Happy to help!", reply.ReplyText)
	assert.False(t, reply.Escalate)
	assert.Equal(t, int64(1), cp.Sequence)
	assert.Equal(t, 1, cp.State.UserTurns)
	assert.Len(t, cp.State.History, 2)
	assert.Equal(t, 50, cp.State.TotalTokensUsed)
	assert.Equal(t, 1, responderCalls)
	assert.Equal(t, 0, scorerCalls)
}

func TestStepSequenceIsMonotonic(t *testing.T) {
	var scorerCalls, responderCalls int
	store := newMemCheckpoints()
	engine := newTestEngine(t, testGraphConfig(&scorerCalls, &responderCalls), store)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, cp, err := engine.Step(ctx, userMessage("t-1", fmt.Sprintf("message %d", i)))
		require.NoError(t, err)
		assert.Equal(t, int64(i), cp.Sequence)
	}

	history, err := store.History(ctx, "t-1")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestStepRoutesThroughScorerOnAccrual(t *testing.T) {
	var scorerCalls, responderCalls int
	store := newMemCheckpoints()
	engine := newTestEngine(t, testGraphConfig(&scorerCalls, &responderCalls), store)
	ctx := context.Background()

	// First message: one unscored turn, below the threshold of two.
	_, _, err := engine.Step(ctx, userMessage("t-1", "hi, I'm looking for a job"))
	require.NoError(t, err)
	assert.Equal(t, 0, scorerCalls)

	// Second message crosses the threshold.
	_, cp, err := engine.Step(ctx, userMessage("t-1", "I have 6 years of Go experience"))
	require.NoError(t, err)
	assert.Equal(t, 1, scorerCalls)
	assert.Equal(t, 2, cp.State.ScoredTurns)
	require.NotNil(t, cp.State.Extracted)

	// Third message: accrual restarted, scorer skipped again.
	_, _, err = engine.Step(ctx, userMessage("t-1", "thanks"))
	require.NoError(t, err)
	assert.Equal(t, 1, scorerCalls)
}

func TestStepNodeErrorEscalates(t *testing.T) {
	var scorerCalls, responderCalls int
	cfg := testGraphConfig(&scorerCalls, &responderCalls)
	cfg.ResponderNode = func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		return model.StateUpdate{}, errors.New("downstream exploded")
	}
	engine := newTestEngine(t, cfg, newMemCheckpoints())

	reply, cp, err := engine.Step(context.Background(), userMessage("t-1", "hello"))
	require.NoError(t, err)

	assert.Equal(t, nodes.FallbackReply, reply.ReplyText)
	assert.True(t, reply.Escalate)
	// The error handler consumed the flag before commit.
	assert.False(t, cp.State.ErrorOccurred)
}

func TestStepNodePanicIsContained(t *testing.T) {
	var scorerCalls, responderCalls int
	cfg := testGraphConfig(&scorerCalls, &responderCalls)
	cfg.ResponderNode = func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		panic("boom")
	}
	engine := newTestEngine(t, cfg, newMemCheckpoints())

	reply, _, err := engine.Step(context.Background(), userMessage("t-1", "hello"))
	require.NoError(t, err)
	assert.True(t, reply.Escalate)
	assert.Equal(t, nodes.FallbackReply, reply.ReplyText)
}

func TestStepEscalationShortCircuits(t *testing.T) {
	var scorerCalls, responderCalls int
	cfg := testGraphConfig(&scorerCalls, &responderCalls)
	cfg.ResponderNode = func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		responderCalls++
		escalate := true
		return model.StateUpdate{Escalate: &escalate}, nil
	}
	engine := newTestEngine(t, cfg, newMemCheckpoints())
	ctx := context.Background()

	reply, _, err := engine.Step(ctx, userMessage("t-1", "let me speak to a human"))
	require.NoError(t, err)
	assert.True(t, reply.Escalate)
	assert.Equal(t, nodes.HandoffReply, reply.ReplyText)
	assert.Equal(t, 1, responderCalls)

	// Subsequent steps stay with the human; the responder never runs again.
	reply, _, err = engine.Step(ctx, userMessage("t-1", "hello again"))
	require.NoError(t, err)
	assert.True(t, reply.Escalate)
	assert.Equal(t, nodes.HandoffReply, reply.ReplyText)
	assert.Equal(t, 1, responderCalls)
}

func TestStepIterationBudgetFailsClosed(t *testing.T) {
	var scorerCalls, responderCalls int
	cfg := testGraphConfig(&scorerCalls, &responderCalls)
	cfg.Conversation.Extraction.MinNewTurns = 1
	cfg.Conversation.Step.MaxIterations = 2 // router + scorer, responder never fits
	engine := newTestEngine(t, cfg, newMemCheckpoints())

	reply, cp, err := engine.Step(context.Background(), userMessage("t-1", "hello"))
	require.NoError(t, err)

	assert.True(t, reply.Escalate)
	assert.Equal(t, nodes.FallbackReply, reply.ReplyText)
	assert.Equal(t, 0, responderCalls)
	assert.Equal(t, "step iteration budget exceeded", cp.State.Extra["fail_closed_reason"])
}

func TestStepScorerRetryLoopIsBounded(t *testing.T) {
	var responderCalls int
	var scorerAttempts int
	cfg := testGraphConfig(&scorerAttempts, &responderCalls)
	cfg.Conversation.Extraction.MinNewTurns = 1
	cfg.ScorerNode = func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		scorerAttempts++
		failed := true
		reason := "extraction keeps failing"
		return model.StateUpdate{
			ExtractionAttempts: 1,
			ErrorOccurred:      &failed,
			ErrorReason:        &reason,
		}, nil
	}
	engine := newTestEngine(t, cfg, newMemCheckpoints())

	reply, _, err := engine.Step(context.Background(), userMessage("t-1", "hello"))
	require.NoError(t, err)

	// MaxAttempts is 2: one initial run plus one retry, then the responder
	// still answers.
	assert.Equal(t, 2, scorerAttempts)
	assert.Equal(t, 1, responderCalls)
	assert.Equal(t, "Happy to help!", reply.ReplyText)
}

func TestStepCheckpointSaveFailureIsFatal(t *testing.T) {
	var scorerCalls, responderCalls int
	store := newMemCheckpoints()
	store.saveErr = errors.New("redis down")
	engine := newTestEngine(t, testGraphConfig(&scorerCalls, &responderCalls), store)

	_, _, err := engine.Step(context.Background(), userMessage("t-1", "hello"))
	assert.Error(t, err)
}

func TestStepInputValidation(t *testing.T) {
	var scorerCalls, responderCalls int
	engine := newTestEngine(t, testGraphConfig(&scorerCalls, &responderCalls), newMemCheckpoints())
	ctx := context.Background()

	_, _, err := engine.Step(ctx, model.IncomingMessage{ThreadID: "", Text: "hi"})
	assert.Error(t, err)

	_, _, err = engine.Step(ctx, model.IncomingMessage{ThreadID: "t-1", Text: "   "})
	assert.Error(t, err)
}

func TestStepResumesFromLatestCheckpoint(t *testing.T) {
	var scorerCalls, responderCalls int
	store := newMemCheckpoints()
	cfg := testGraphConfig(&scorerCalls, &responderCalls)
	ctx := context.Background()

	first := newTestEngine(t, cfg, store)
	_, _, err := first.Step(ctx, userMessage("t-1", "hello"))
	require.NoError(t, err)

	// A fresh engine over the same store picks up where the first left off.
	second := newTestEngine(t, cfg, store)
	_, cp, err := second.Step(ctx, userMessage("t-1", "still there?"))
	require.NoError(t, err)

	assert.Equal(t, int64(2), cp.Sequence)
	assert.Equal(t, 2, cp.State.UserTurns)
	assert.Len(t, cp.State.History, 4)
}

func TestStepSerializesPerThread(t *testing.T) {
	var scorerCalls, responderCalls int
	store := newMemCheckpoints()
	engine := newTestEngine(t, testGraphConfig(&scorerCalls, &responderCalls), store)
	ctx := context.Background()

	const steps = 10
	var wg sync.WaitGroup
	for i := 0; i < steps; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := engine.Step(ctx, userMessage("t-1", fmt.Sprintf("message %d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	latest, err := store.LoadLatest(ctx, "t-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, int64(steps), latest.Sequence)
	assert.Equal(t, steps, latest.State.UserTurns)

	history, err := store.History(ctx, "t-1")
	require.NoError(t, err)
	seen := make(map[int64]bool)
	for _, cp := range history {
		assert.False(t, seen[cp.Sequence], "duplicate sequence %d", cp.Sequence)
		seen[cp.Sequence] = true
	}
}
