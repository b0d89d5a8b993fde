// Package shared holds the types passed between the assistant proxy and the
// usage store.
package shared

import "time"

// TokenUsage is what the provider reported for one completion.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Billable reports whether the provider charged anything for the call.
func (u TokenUsage) Billable() bool {
	return u.PromptTokens > 0 || u.CompletionTokens > 0
}

// CallMeta describes one finished assistant call.
type CallMeta struct {
	Caller  string
	Usage   TokenUsage
	Latency time.Duration
}
