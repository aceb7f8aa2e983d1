package model

import (
	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// defaultPricing provides hardcoded USD pricing per 1M text tokens.
var defaultPricing = map[string]Pricing{
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
}

// ResolvePricing returns pricing for a model, zero pricing when unknown.
func ResolvePricing(model string) Pricing {
	p, ok := defaultPricing[model]
	if !ok {
		return Pricing{}
	}
	return p
}

// Usage summarizes one model call for the state accumulators.
type Usage struct {
	TotalTokens int
	CostUSD     float64
}

// UsageFromMessage converts the response metadata of a model call into the
// token/cost contribution folded into ConversationState by the sum reducers.
func UsageFromMessage(msg *schema.Message, modelName string) Usage {
	if msg == nil || msg.ResponseMeta == nil || msg.ResponseMeta.Usage == nil {
		return Usage{}
	}
	u := msg.ResponseMeta.Usage
	p := ResolvePricing(modelName)
	in := p.InputPerM * float64(u.PromptTokens) / 1_000_000.0
	out := p.OutputPerM * float64(u.CompletionTokens) / 1_000_000.0
	return Usage{
		TotalTokens: u.TotalTokens,
		CostUSD:     in + out,
	}
}
