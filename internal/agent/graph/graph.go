package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/leadline-ai/engine/internal/agent/graph/conversations"
	"github.com/leadline-ai/engine/internal/agent/graph/nodes"
	"github.com/leadline-ai/engine/internal/agent/graph/tools"
	"github.com/leadline-ai/engine/internal/agent/model"
	"github.com/leadline-ai/engine/internal/agent/retrieval"
	"github.com/leadline-ai/engine/internal/agent/scorer"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// Config holds everything needed to compose the full engine end-to-end.
// This is a convenience layer over GraphConfig that also constructs the
// chat models, tool registry, scorer and retrieval engine.
type Config struct {
	APIKey  string
	BaseURL string

	ExtractionModel model.ExtractionModelConfig
	ResponseModel   model.ResponseModelConfig
	ResponsePrompt  model.ResponsePromptConfig
	Conversation    model.ConversationConfig
	Router          model.RouterConfig
	Scoring         model.ScoringConfig
	Retrieval       model.RetrievalConfig

	Checkpoints    model.CheckpointStore
	Qualifications model.QualificationStore
	ToolLog        model.ToolLog
	Searcher       model.ChunkSearcher
	Embedder       model.Embedder
	Calendar       model.Calendar

	Observer Observer
}

// GraphConfig holds the already-constructed collaborators the graph wires
// its nodes from. Tests build this directly with fakes.
type GraphConfig struct {
	Router       model.RouterConfig
	Conversation model.ConversationConfig

	RouterNode    nodes.NodeFunc
	ScorerNode    nodes.NodeFunc
	ResponderNode nodes.NodeFunc
}

// GraphBuilder handles the construction of the orchestration graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *runGraph
}

// Engine executes one orchestration step at a time per thread: load the
// latest checkpoint, merge the inbound message, run the graph, commit a
// new checkpoint. Concurrent steps on different threads proceed in
// parallel; steps on the same thread are serialized.
type Engine struct {
	graph       *runGraph
	checkpoints model.CheckpointStore
	observer    Observer
	locks       threadLocks
}

// BuildEngine composes chat models, tools, scorer and retrieval into a
// ready engine.
func BuildEngine(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint store is nil")
	}
	if cfg.Qualifications == nil || cfg.ToolLog == nil {
		return nil, fmt.Errorf("persistence collaborators are not properly initialized")
	}
	if cfg.Searcher == nil || cfg.Embedder == nil || cfg.Calendar == nil {
		return nil, fmt.Errorf("retrieval collaborators are not properly initialized")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		ExtractionConfig: &cfg.ExtractionModel,
		ResponseConfig:   &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	retrievalEngine := retrieval.NewEngine(cfg.Embedder, cfg.Searcher, cfg.Retrieval)

	toolTimeout := parseDurationOr(cfg.Conversation.Tools.Timeout, 10*time.Second)
	registry := tools.NewRegistry(tools.Deps{
		Retrieval: retrievalEngine,
		Calendar:  cfg.Calendar,
	}, cfg.ToolLog, toolTimeout)

	toolInfos, err := registry.Infos(ctx)
	if err != nil {
		return nil, err
	}
	if err := cms.BindToolsToResponseModel(ctx, toolInfos); err != nil {
		return nil, err
	}

	sc := scorer.New(cms.Extraction, cfg.ExtractionModel, cfg.Scoring)

	responder := nodes.NewResponderNode(nodes.ResponderConfig{
		ChatModel:     cms.Response,
		ModelName:     cms.ResponseModelName,
		Tools:         registry,
		Prompt:        cfg.ResponsePrompt,
		Context:       conversations.NewContextBuilder(cfg.Conversation),
		MaxToolPasses: cfg.Conversation.Tools.MaxPasses,
		Timeout:       parseDurationOr(cfg.ResponseModel.Timeout, 45*time.Second),
		MaxRetries:    cfg.ResponseModel.MaxRetries,
	})

	g, err := BuildGraph(&GraphConfig{
		Router:        cfg.Router,
		Conversation:  cfg.Conversation,
		RouterNode:    nodes.NewRouterNode(cfg.Router),
		ScorerNode:    nodes.NewScorerNode(sc, cfg.Qualifications, cfg.Conversation.Extraction.MaxAttempts),
		ResponderNode: responder,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Engine graph built successfully")
	return &Engine{
		graph:       g,
		checkpoints: cfg.Checkpoints,
		observer:    cfg.Observer,
	}, nil
}

// BuildGraph constructs and validates the orchestration graph
func BuildGraph(config *GraphConfig) (*runGraph, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.RouterNode == nil || config.ScorerNode == nil || config.ResponderNode == nil {
		return nil, fmt.Errorf("graph nodes are not properly initialized")
	}

	builder := &GraphBuilder{
		config: config,
		graph: &runGraph{
			graphNodes:    make(map[nodes.NodeID]nodes.NodeFunc),
			edges:         make(map[nodes.NodeID]nodes.NodeID),
			branches:      make(map[nodes.NodeID]branch),
			entry:         nodes.NodeRouter,
			errorNode:     nodes.NodeErrorHandler,
			handoffNode:   nodes.NodeHumanHandoff,
			maxIterations: config.Conversation.Step.MaxIterations,
		},
	}
	if builder.graph.maxIterations <= 0 {
		builder.graph.maxIterations = 12
	}

	builder.addNodes()
	builder.addEdges()
	builder.addBranches()

	return builder.compile()
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	b.graph.graphNodes[nodes.NodeRouter] = b.config.RouterNode
	b.graph.graphNodes[nodes.NodeScorer] = b.config.ScorerNode
	b.graph.graphNodes[nodes.NodeResponder] = b.config.ResponderNode
	b.graph.graphNodes[nodes.NodeHumanHandoff] = nodes.NewHumanHandoffNode()
	b.graph.graphNodes[nodes.NodeErrorHandler] = nodes.NewErrorHandlerNode()
}

// addEdges creates the unconditional flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]nodes.NodeID{
		{nodes.NodeResponder, nodes.NodeEnd},
		{nodes.NodeHumanHandoff, nodes.NodeEnd},
		{nodes.NodeErrorHandler, nodes.NodeEnd},
	}
	for _, edge := range edges {
		b.graph.edges[edge[0]] = edge[1]
	}
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() {
	b.graph.branches[nodes.NodeRouter] = branch{
		fn: nodes.NewScorerRoutingCondition(b.config.Conversation.Extraction.MinNewTurns),
		targets: map[nodes.NodeID]bool{
			nodes.NodeScorer:    true,
			nodes.NodeResponder: true,
		},
	}
	b.graph.branches[nodes.NodeScorer] = branch{
		fn: nodes.NewScorerRetryCondition(b.config.Conversation.Extraction.MaxAttempts),
		targets: map[nodes.NodeID]bool{
			nodes.NodeScorer:    true,
			nodes.NodeResponder: true,
		},
	}
}

// compile validates the wiring: every node is reachable from a declared
// edge or branch, and every edge and branch target has a handler.
func (b *GraphBuilder) compile() (*runGraph, error) {
	g := b.graph
	if _, ok := g.graphNodes[g.entry]; !ok {
		return nil, fmt.Errorf("entry node %s has no handler", g.entry)
	}
	if _, ok := g.graphNodes[g.errorNode]; !ok {
		return nil, fmt.Errorf("error node %s has no handler", g.errorNode)
	}
	if _, ok := g.graphNodes[g.handoffNode]; !ok {
		return nil, fmt.Errorf("handoff node %s has no handler", g.handoffNode)
	}

	for from, to := range g.edges {
		if _, ok := g.graphNodes[from]; !ok {
			return nil, fmt.Errorf("edge from unknown node %s", from)
		}
		if to != nodes.NodeEnd {
			if _, ok := g.graphNodes[to]; !ok {
				return nil, fmt.Errorf("edge %s -> %s targets unknown node", from, to)
			}
		}
	}
	for from, br := range g.branches {
		if _, ok := g.graphNodes[from]; !ok {
			return nil, fmt.Errorf("branch from unknown node %s", from)
		}
		for target := range br.targets {
			if target == nodes.NodeEnd {
				continue
			}
			if _, ok := g.graphNodes[target]; !ok {
				return nil, fmt.Errorf("branch %s targets unknown node %s", from, target)
			}
		}
	}
	for id := range g.graphNodes {
		_, hasEdge := g.edges[id]
		_, hasBranch := g.branches[id]
		if !hasEdge && !hasBranch {
			return nil, fmt.Errorf("node %s has no outgoing edge or branch", id)
		}
	}

	logx.Debug().Msg("Graph compiled successfully")
	return g, nil
}

// Step processes one inbound message through the graph and commits the
// resulting checkpoint. The committed checkpoint is the step's unit of
// atomicity: when Save fails the error is returned and nothing about the
// step may be assumed persisted.
func (e *Engine) Step(ctx context.Context, msg model.IncomingMessage) (model.OutboundReply, *model.Checkpoint, error) {
	threadID := strings.TrimSpace(msg.ThreadID)
	if threadID == "" {
		return model.OutboundReply{}, nil, fmt.Errorf("thread id is required")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return model.OutboundReply{}, nil, fmt.Errorf("message text is required")
	}

	unlock := e.locks.lock(threadID)
	defer unlock()

	latest, err := e.checkpoints.LoadLatest(ctx, threadID)
	if err != nil {
		return model.OutboundReply{}, nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var state *model.ConversationState
	var sequence int64
	if latest != nil && latest.State != nil {
		state = latest.State.Clone()
		sequence = latest.Sequence
	} else {
		state = model.NewConversationState(threadID)
	}

	resetStepScope(state)

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	merge := model.StateUpdate{
		AppendHistory: []model.Message{{Role: model.RoleUser, Text: msg.Text, Timestamp: ts}},
		UserTurns:     1,
	}
	if msg.ChannelSource != "" || msg.SenderID != "" {
		merge.Extra = map[string]any{}
		if msg.ChannelSource != "" {
			merge.Extra["channel_source"] = msg.ChannelSource
		}
		if msg.SenderID != "" {
			merge.Extra["sender_id"] = msg.SenderID
		}
	}
	state.Apply(merge)

	start := time.Now()
	e.graph.run(ctx, state, e.observer)

	if state.Reply == "" {
		// Every step must answer something, even if the graph ended on an
		// unexpected path.
		state.Apply(model.StateUpdate{Reply: ptr(nodes.FallbackReply)})
	}

	cp := &model.Checkpoint{
		ThreadID:  threadID,
		Sequence:  sequence + 1,
		State:     state.Clone(),
		CreatedAt: time.Now().UTC(),
	}
	if err := e.checkpoints.Save(ctx, cp); err != nil {
		return model.OutboundReply{}, nil, fmt.Errorf("save checkpoint: %w", err)
	}

	logx.Info().
		Str("thread_id", threadID).
		Int64("sequence", cp.Sequence).
		Dur("duration", time.Since(start)).
		Bool("escalate", state.EscalateToHuman).
		Msg("step committed")

	return model.OutboundReply{
		ThreadID:  threadID,
		ReplyText: state.Reply,
		Escalate:  state.EscalateToHuman,
	}, cp, nil
}

// resetStepScope clears the per-step fields before a new message is
// merged. Error flags from a finished step never leak into the next one.
func resetStepScope(s *model.ConversationState) {
	s.Reply = ""
	s.ExtractionAttempts = 0
	s.ToolPasses = 0
	s.ErrorOccurred = false
	s.ErrorReason = ""
}

// threadLocks serializes steps per thread. The map only grows; entries
// are a single mutex each and threads are bounded by the checkpoint TTL.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (t *threadLocks) lock(threadID string) func() {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[string]*sync.Mutex)
	}
	l, ok := t.locks[threadID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[threadID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}
