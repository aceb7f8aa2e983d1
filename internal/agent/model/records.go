package model

import (
	"time"
)

// IncomingMessage is the normalized inbound payload produced by channel
// adapters and consumed by the engine's entry node.
type IncomingMessage struct {
	ThreadID      string    `json:"thread_id"`
	SenderID      string    `json:"sender_id"`
	Text          string    `json:"text"`
	Timestamp     time.Time `json:"timestamp"`
	ChannelSource string    `json:"channel_source"`
}

// OutboundReply is returned to the calling adapter for delivery.
type OutboundReply struct {
	ThreadID  string `json:"thread_id"`
	ReplyText string `json:"reply_text"`
	Escalate  bool   `json:"escalate"`
}

// Checkpoint is a durable, sequence-numbered snapshot of a thread's state.
// Checkpoints are appended, never overwritten; a resumed orchestration always
// starts from the highest committed sequence.
type Checkpoint struct {
	ThreadID  string             `json:"thread_id"`
	Sequence  int64              `json:"sequence"`
	State     *ConversationState `json:"state"`
	CreatedAt time.Time          `json:"created_at"`
}

// ToolInvocationRecord is a write-once audit entry; exactly one exists per
// attempted tool call, successful or not.
type ToolInvocationRecord struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"thread_id"`
	ToolName  string        `json:"tool_name"`
	Input     string        `json:"input"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Timestamp time.Time     `json:"timestamp"`
}

// Corpus selects one of the two independently indexed retrieval collections.
type Corpus string

const (
	CorpusJobPostings Corpus = "job_postings"
	CorpusCompanyDocs Corpus = "company_docs"
)

// RetrievedChunk is an ephemeral ranked retrieval hit, consumed within a
// single orchestration step and never persisted by the engine.
type RetrievedChunk struct {
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title"`
	ChunkText  string  `json:"chunk_text"`
	ChunkType  string  `json:"chunk_type"`
	Similarity float64 `json:"similarity"`
}

// Slot is a bookable calendar slot returned by the calendar collaborator.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StepEvent is emitted once per completed graph node. It is instrumentation
// only, not part of the correctness contract.
type StepEvent struct {
	ThreadID string
	Node     string
	Duration time.Duration
	Err      error
}
