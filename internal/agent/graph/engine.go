package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/leadline-ai/engine/internal/agent/graph/nodes"
	"github.com/leadline-ai/engine/internal/agent/model"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// Observer receives one event per executed node. Implementations must be
// cheap; they run inline with the step.
type Observer interface {
	OnNodeComplete(event model.StepEvent)
}

// runGraph is the compiled orchestration graph: nodes, unconditional
// edges, and conditional branches over a shared ConversationState. Nodes
// return partial updates; runGraph owns folding them into the state.
type runGraph struct {
	graphNodes map[nodes.NodeID]nodes.NodeFunc
	edges      map[nodes.NodeID]nodes.NodeID
	branches   map[nodes.NodeID]branch

	entry         nodes.NodeID
	errorNode     nodes.NodeID
	handoffNode   nodes.NodeID
	maxIterations int
}

type branch struct {
	fn      nodes.BranchFunc
	targets map[nodes.NodeID]bool
}

// run walks the graph from the entry node until NodeEnd, applying each
// node's update before choosing the next hop. Three safety rails apply:
// a node error or panic reroutes through the error handler, a set
// escalation flag short-circuits into the handoff node, and the iteration
// budget fails closed into escalation.
func (g *runGraph) run(ctx context.Context, s *model.ConversationState, obs Observer) {
	current := g.entry
	iterations := 0

	for current != nodes.NodeEnd {
		iterations++
		if iterations > g.maxIterations {
			logx.Error().
				Str("thread_id", s.ThreadID).
				Int("iterations", iterations).
				Msg("step iteration budget exceeded, escalating")
			s.Apply(failClosedUpdate("step iteration budget exceeded"))
			return
		}

		update, err := g.invoke(ctx, current, s, obs)
		if err != nil {
			if current == g.errorNode {
				// The error handler itself failed; last resort.
				s.Apply(failClosedUpdate(err.Error()))
				return
			}
			reason := err.Error()
			s.Apply(model.StateUpdate{
				ErrorOccurred: ptr(true),
				ErrorReason:   &reason,
			})
			current = g.errorNode
			continue
		}

		s.Apply(update)

		next := g.next(ctx, current, s)
		if s.EscalateToHuman && current != g.handoffNode && current != g.errorNode && next != g.handoffNode {
			next = g.handoffNode
		}
		current = next
	}
}

// invoke runs one node with panic containment and reports it to the
// observer.
func (g *runGraph) invoke(ctx context.Context, id nodes.NodeID, s *model.ConversationState, obs Observer) (update model.StateUpdate, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("node %s panicked: %v", id, r)
		}
		if obs != nil {
			obs.OnNodeComplete(model.StepEvent{
				ThreadID: s.ThreadID,
				Node:     string(id),
				Duration: time.Since(start),
				Err:      err,
			})
		}
	}()

	fn, ok := g.graphNodes[id]
	if !ok {
		return model.StateUpdate{}, fmt.Errorf("no handler for node %s", id)
	}
	return fn(ctx, s)
}

func (g *runGraph) next(ctx context.Context, current nodes.NodeID, s *model.ConversationState) nodes.NodeID {
	if br, ok := g.branches[current]; ok {
		target := br.fn(ctx, s)
		if !br.targets[target] {
			logx.Error().
				Str("node", string(current)).
				Str("target", string(target)).
				Msg("branch picked an undeclared target, ending step")
			return nodes.NodeEnd
		}
		return target
	}
	if to, ok := g.edges[current]; ok {
		return to
	}
	return nodes.NodeEnd
}

// failClosedUpdate is the terminal update when the graph cannot finish a
// step normally: escalate, clear the error flag, and leave a safe reply.
func failClosedUpdate(reason string) model.StateUpdate {
	return model.StateUpdate{
		ErrorOccurred: ptr(false),
		ErrorReason:   ptr(""),
		Escalate:      ptr(true),
		Reply:         ptr(nodes.FallbackReply),
		AppendHistory: []model.Message{{
			Role:      model.RoleAssistant,
			Text:      nodes.FallbackReply,
			Timestamp: time.Now().UTC(),
		}},
		Extra: map[string]any{"fail_closed_reason": reason},
	}
}

func ptr[T any](v T) *T { return &v }
