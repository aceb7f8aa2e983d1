package model

import (
	"time"
)

// Role identifies the author of a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is a single entry in a thread's conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationState is the unit of work threaded through the orchestration
// graph. It is owned by exactly one in-flight step at a time; the engine
// serializes steps per thread. Nodes never mutate it directly: they return a
// StateUpdate and the engine folds it in via Apply, one reducer per field.
type ConversationState struct {
	ThreadID string `json:"thread_id"`

	// History is append-only. Apply concatenates in arrival order, never
	// replaces.
	History []Message `json:"history"`

	// Extracted is the last-known structured extraction; replace-on-write.
	Extracted *CandidateProfile `json:"extracted,omitempty"`

	// Accumulators; each partial update adds to the running totals.
	TotalTokensUsed int     `json:"total_tokens_used"`
	TotalCostUSD    float64 `json:"total_cost_usd"`

	// Control flags; replace-on-write.
	EscalateToHuman bool   `json:"escalate_to_human"`
	ErrorOccurred   bool   `json:"error_occurred"`
	ErrorReason     string `json:"error_reason,omitempty"`

	// Routing signal produced by the entry node.
	Intent           string  `json:"intent,omitempty"`
	IntentConfidence float64 `json:"intent_confidence,omitempty"`

	// Extraction accrual: UserTurns counts user messages ever merged (sum),
	// ScoredTurns records the UserTurns value at the last extraction
	// (replace). Their difference is the new content since the last score.
	UserTurns   int `json:"user_turns"`
	ScoredTurns int `json:"scored_turns"`

	// Step-scoped counters, reset by the engine at step entry.
	ExtractionAttempts int `json:"extraction_attempts"`
	ToolPasses         int `json:"tool_passes"`

	// Reply produced by the current step; replace-on-write.
	Reply string `json:"reply,omitempty"`

	// Extra carries forward-compatible, non-critical metadata. Reducers only
	// ever operate on the named fields above, never on arbitrary keys.
	Extra map[string]any `json:"extra,omitempty"`
}

// NewConversationState returns an empty state for a thread.
func NewConversationState(threadID string) *ConversationState {
	return &ConversationState{ThreadID: threadID}
}

// StateUpdate is a partial update returned by a graph node. Zero values mean
// "no change" for replace fields; pointer fields distinguish "unset" from an
// explicit write.
type StateUpdate struct {
	AppendHistory []Message

	Extracted *CandidateProfile

	TokensUsed int
	CostUSD    float64

	Escalate      *bool
	ErrorOccurred *bool
	ErrorReason   *string

	Intent           *string
	IntentConfidence *float64

	UserTurns          int
	ScoredTurns        *int
	ExtractionAttempts int
	ToolPasses         int

	Reply *string

	Extra map[string]any
}

// Apply folds a partial update into the state using the per-field reducers:
// append for history, sum for accumulators and counters, replace for
// extraction/control/reply, key-merge for Extra.
func (s *ConversationState) Apply(u StateUpdate) {
	if len(u.AppendHistory) > 0 {
		s.History = append(s.History, u.AppendHistory...)
	}
	if u.Extracted != nil {
		s.Extracted = u.Extracted
	}
	s.TotalTokensUsed += u.TokensUsed
	s.TotalCostUSD += u.CostUSD
	if u.Escalate != nil {
		s.EscalateToHuman = *u.Escalate
	}
	if u.ErrorOccurred != nil {
		s.ErrorOccurred = *u.ErrorOccurred
	}
	if u.ErrorReason != nil {
		s.ErrorReason = *u.ErrorReason
	}
	if u.Intent != nil {
		s.Intent = *u.Intent
	}
	if u.IntentConfidence != nil {
		s.IntentConfidence = *u.IntentConfidence
	}
	s.UserTurns += u.UserTurns
	if u.ScoredTurns != nil {
		s.ScoredTurns = *u.ScoredTurns
	}
	s.ExtractionAttempts += u.ExtractionAttempts
	s.ToolPasses += u.ToolPasses
	if u.Reply != nil {
		s.Reply = *u.Reply
	}
	if len(u.Extra) > 0 {
		if s.Extra == nil {
			s.Extra = make(map[string]any, len(u.Extra))
		}
		for k, v := range u.Extra {
			s.Extra[k] = v
		}
	}
}

// Clone returns a deep copy suitable for checkpoint snapshots.
func (s *ConversationState) Clone() *ConversationState {
	cp := *s
	cp.History = make([]Message, len(s.History))
	copy(cp.History, s.History)
	if s.Extracted != nil {
		e := s.Extracted.Clone()
		cp.Extracted = &e
	}
	if s.Extra != nil {
		cp.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}

// UnscoredTurns reports how many user messages accrued since the last
// extraction.
func (s *ConversationState) UnscoredTurns() int {
	return s.UserTurns - s.ScoredTurns
}

// ConversationText flattens the user/assistant history into plain text for
// the extraction model.
func (s *ConversationState) ConversationText() string {
	var b []byte
	for _, m := range s.History {
		switch m.Role {
		case RoleUser:
			b = append(b, "Candidate: "...)
		case RoleAssistant:
			b = append(b, "Recruiter: "...)
		default:
			continue
		}
		b = append(b, m.Text...)
		b = append(b, '\n')
	}
	return string(b)
}
