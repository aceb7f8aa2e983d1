package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(v bool) *bool        { return &v }
func strPtr(v string) *string     { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestApplyHistoryIsAppendOnly(t *testing.T) {
	s := NewConversationState("t-1")
	first := Message{Role: RoleUser, Text: "hello", Timestamp: time.Now()}
	second := Message{Role: RoleAssistant, Text: "hi there", Timestamp: time.Now()}

	s.Apply(StateUpdate{AppendHistory: []Message{first}})
	s.Apply(StateUpdate{AppendHistory: []Message{second}})

	require.Len(t, s.History, 2)
	assert.Equal(t, "hello", s.History[0].Text)
	assert.Equal(t, "hi there", s.History[1].Text)

	// Applying more updates never rewrites the existing prefix.
	s.Apply(StateUpdate{AppendHistory: []Message{{Role: RoleUser, Text: "more"}}})
	assert.Equal(t, first.Text, s.History[0].Text)
	assert.Equal(t, second.Text, s.History[1].Text)
}

func TestApplyAccumulatorsSum(t *testing.T) {
	s := NewConversationState("t-1")

	s.Apply(StateUpdate{TokensUsed: 100, CostUSD: 0.001})
	s.Apply(StateUpdate{TokensUsed: 250, CostUSD: 0.002})

	assert.Equal(t, 350, s.TotalTokensUsed)
	assert.InDelta(t, 0.003, s.TotalCostUSD, 1e-9)
}

func TestApplyReplaceFields(t *testing.T) {
	s := NewConversationState("t-1")

	s.Apply(StateUpdate{Intent: strPtr("greet"), IntentConfidence: floatPtr(0.3)})
	s.Apply(StateUpdate{Intent: strPtr("apply_intent"), IntentConfidence: floatPtr(0.9)})

	assert.Equal(t, "apply_intent", s.Intent)
	assert.Equal(t, 0.9, s.IntentConfidence)

	// Zero-valued update leaves replace fields untouched.
	s.Apply(StateUpdate{})
	assert.Equal(t, "apply_intent", s.Intent)

	s.Apply(StateUpdate{Escalate: boolPtr(true), Reply: strPtr("done")})
	assert.True(t, s.EscalateToHuman)
	assert.Equal(t, "done", s.Reply)
}

func TestApplyExtractionReplacesWholeProfile(t *testing.T) {
	s := NewConversationState("t-1")
	years := 4.0

	s.Apply(StateUpdate{Extracted: &CandidateProfile{FullName: "Ada"}})
	s.Apply(StateUpdate{Extracted: &CandidateProfile{YearsExperience: &years}})

	require.NotNil(t, s.Extracted)
	assert.Empty(t, s.Extracted.FullName)
	require.NotNil(t, s.Extracted.YearsExperience)
	assert.Equal(t, 4.0, *s.Extracted.YearsExperience)
}

func TestApplyExtraMergesByKey(t *testing.T) {
	s := NewConversationState("t-1")

	s.Apply(StateUpdate{Extra: map[string]any{"a": 1, "b": "x"}})
	s.Apply(StateUpdate{Extra: map[string]any{"b": "y", "c": true}})

	assert.Equal(t, 1, s.Extra["a"])
	assert.Equal(t, "y", s.Extra["b"])
	assert.Equal(t, true, s.Extra["c"])
}

func TestUnscoredTurns(t *testing.T) {
	s := NewConversationState("t-1")

	s.Apply(StateUpdate{UserTurns: 1})
	s.Apply(StateUpdate{UserTurns: 1})
	s.Apply(StateUpdate{UserTurns: 1})
	assert.Equal(t, 3, s.UnscoredTurns())

	scored := s.UserTurns
	s.Apply(StateUpdate{ScoredTurns: intPtr(scored)})
	assert.Equal(t, 0, s.UnscoredTurns())

	s.Apply(StateUpdate{UserTurns: 1})
	assert.Equal(t, 1, s.UnscoredTurns())
}

func TestCloneIsDeep(t *testing.T) {
	years := 7.0
	s := NewConversationState("t-1")
	s.Apply(StateUpdate{
		AppendHistory: []Message{{Role: RoleUser, Text: "hi"}},
		Extracted:     &CandidateProfile{FullName: "Maya", YearsExperience: &years, Skills: []Skill{{Name: "go", Kind: SkillTechnical, Weight: 1}}},
		Extra:         map[string]any{"k": "v"},
	})

	cp := s.Clone()
	cp.History[0].Text = "changed"
	cp.Extracted.FullName = "someone else"
	cp.Extra["k"] = "w"

	assert.Equal(t, "hi", s.History[0].Text)
	assert.Equal(t, "Maya", s.Extracted.FullName)
	assert.Equal(t, "v", s.Extra["k"])
}

func TestConversationTextSkipsNonDialogue(t *testing.T) {
	s := NewConversationState("t-1")
	s.Apply(StateUpdate{AppendHistory: []Message{
		{Role: RoleUser, Text: "I have 5 years of Go"},
		{Role: RoleSystem, Text: "internal notice"},
		{Role: RoleAssistant, Text: "Great, tell me more"},
	}})

	text := s.ConversationText()
	assert.Contains(t, text, "Candidate: I have 5 years of Go")
	assert.Contains(t, text, "Recruiter: Great, tell me more")
	assert.NotContains(t, text, "internal notice")
}
