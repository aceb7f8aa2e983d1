package nodes

import (
	"context"
	"strconv"
	"strings"

	"github.com/leadline-ai/engine/internal/agent/model"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

type intentRule struct {
	name       string
	confidence float64
	keywords   []string
}

// NewRouterNode classifies the latest user message into one of the
// configured intents by keyword match. First matching rule wins, in the
// order the intents are listed; no match falls back to the configured
// default intent.
func NewRouterNode(cfg model.RouterConfig) NodeFunc {
	rules := parseIntentRules(cfg)

	return func(ctx context.Context, s *model.ConversationState) (model.StateUpdate, error) {
		text := strings.ToLower(lastUserText(s))

		intent := cfg.Fallback
		confidence := cfg.FallbackConfidence
		for _, rule := range rules {
			if matchesAny(text, rule.keywords) {
				intent = rule.name
				confidence = rule.confidence
				break
			}
		}

		logx.Debug().
			Str("thread_id", s.ThreadID).
			Str("intent", intent).
			Float64("confidence", confidence).
			Msg("intent classified")

		return model.StateUpdate{
			Intent:           &intent,
			IntentConfidence: &confidence,
		}, nil
	}
}

// NewScorerRoutingCondition routes a step through the scorer once enough
// unscored user turns have accrued, otherwise straight to the responder.
// A handoff intent skips scoring; the handoff reply does not depend on it.
func NewScorerRoutingCondition(minNewTurns int) BranchFunc {
	if minNewTurns < 1 {
		minNewTurns = 1
	}
	return func(ctx context.Context, s *model.ConversationState) NodeID {
		if s.Intent == "handoff_intent" {
			return NodeResponder
		}
		if s.UnscoredTurns() >= minNewTurns {
			return NodeScorer
		}
		return NodeResponder
	}
}

// parseIntentRules merges the "name:confidence" intent list with the
// "name=kw|kw;..." keyword list, keeping the intent list's order. Intents
// without keywords are kept as unreachable rules rather than dropped so a
// config typo shows up in the logs, not as silent misrouting.
func parseIntentRules(cfg model.RouterConfig) []intentRule {
	keywords := make(map[string][]string)
	for _, group := range strings.Split(cfg.Keywords, ";") {
		name, list, ok := strings.Cut(group, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		var kws []string
		for _, kw := range strings.Split(list, "|") {
			if kw = strings.TrimSpace(strings.ToLower(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if name != "" && len(kws) > 0 {
			keywords[name] = kws
		}
	}

	var rules []intentRule
	for _, entry := range strings.Split(cfg.Intents, ",") {
		name, confStr, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		confidence := 0.5
		if v, err := strconv.ParseFloat(strings.TrimSpace(confStr), 64); err == nil {
			confidence = v
		}
		if len(keywords[name]) == 0 {
			logx.Warn().Str("intent", name).Msg("intent has no keywords configured")
		}
		rules = append(rules, intentRule{
			name:       name,
			confidence: confidence,
			keywords:   keywords[name],
		})
	}
	return rules
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func lastUserText(s *model.ConversationState) string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == model.RoleUser {
			return s.History[i].Text
		}
	}
	return ""
}
