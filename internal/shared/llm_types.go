package shared

import (
	"time"
)

// TokenUsage tracks the tokens a model consumed for one request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Empty reports whether the request consumed no tokens, which is the case
// for degraded runs that never reached a model.
func (u TokenUsage) Empty() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0
}

// AgentMeta holds operational metadata for one reviewer execution.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
