package model

import (
	"context"
	"time"
)

// CheckpointStore persists sequence-numbered state snapshots per thread.
type CheckpointStore interface {
	// Save appends a checkpoint. The write is atomic: either the full
	// snapshot for the step is persisted, or none of it.
	Save(ctx context.Context, cp *Checkpoint) error

	// LoadLatest returns the highest committed checkpoint for the thread,
	// or nil when the thread has none.
	LoadLatest(ctx context.Context, threadID string) (*Checkpoint, error)

	// History returns all checkpoints for the thread in sequence order.
	History(ctx context.Context, threadID string) ([]*Checkpoint, error)
}

// QualificationStore persists scoring results, one row per lead.
type QualificationStore interface {
	// Upsert creates the row on first call and updates it in place on
	// every subsequent call, refreshing updated_at.
	Upsert(ctx context.Context, leadID string, result QualificationResult) error
}

// ToolLog is the append-only audit trail for tool invocations. Records are
// never updated or deleted through this interface.
type ToolLog interface {
	Append(ctx context.Context, rec ToolInvocationRecord) error
}

// ChunkSearcher is the vector-search read path of the persistent store.
type ChunkSearcher interface {
	// Search returns chunks of active sources ordered by similarity
	// descending (source recency breaks ties), excluding chunks whose
	// similarity does not exceed threshold, truncated to limit.
	Search(ctx context.Context, corpus Corpus, queryVector []float32, threshold float64, limit int) ([]RetrievedChunk, error)
}

// Embedder turns text into a fixed-length vector. It is an opaque external
// collaborator.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Calendar exposes interviewer availability to the calendar tool.
type Calendar interface {
	Available(ctx context.Context, from time.Time, days int) ([]Slot, error)
}
