package nodes

import (
	"context"

	"github.com/leadline-ai/engine/internal/agent/model"
)

// NodeID names a vertex in the orchestration graph.
type NodeID string

// Node identifiers used across the graph
const (
	NodeRouter       NodeID = "router"
	NodeScorer       NodeID = "qualification_scorer"
	NodeResponder    NodeID = "responder"
	NodeHumanHandoff NodeID = "human_handoff"
	NodeErrorHandler NodeID = "error_handler"

	// NodeEnd is the terminal sentinel; it has no handler.
	NodeEnd NodeID = "end"
)

// NodeFunc is a single processing step. It reads the state and returns a
// partial update; it never mutates the state directly.
type NodeFunc func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error)

// BranchFunc picks the next node after a branch point.
type BranchFunc func(ctx context.Context, s *model.ConversationState) NodeID
