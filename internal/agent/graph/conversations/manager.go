package conversations

import (
	"github.com/cloudwego/eino/schema"

	"github.com/leadline-ai/engine/internal/agent/model"
)

// ContextBuilder converts durable conversation history into the message
// window handed to the response model.
type ContextBuilder struct {
	maxTurns int
}

func NewContextBuilder(cfg model.ConversationConfig) *ContextBuilder {
	maxTurns := cfg.History.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &ContextBuilder{maxTurns: maxTurns}
}

// BuildResponseContext returns the system prompt followed by the most
// recent user/assistant turns, newest last. Older turns fall out of the
// window; they still feed extraction, which reads the full history.
func (b *ContextBuilder) BuildResponseContext(systemPrompt string, history []model.Message) []*schema.Message {
	window := trimTail(history, b.maxTurns)

	msgs := make([]*schema.Message, 0, len(window)+1)
	msgs = append(msgs, schema.SystemMessage(systemPrompt))
	for _, m := range window {
		switch m.Role {
		case model.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Text))
		case model.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Text, nil))
		}
	}
	return msgs
}

// trimTail keeps the last n user/assistant entries in order.
func trimTail(history []model.Message, n int) []model.Message {
	var window []model.Message
	for _, m := range history {
		if m.Role == model.RoleUser || m.Role == model.RoleAssistant {
			window = append(window, m)
		}
	}
	if len(window) > n {
		window = window[len(window)-n:]
	}
	return window
}
