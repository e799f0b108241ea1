package resilience

import (
	"context"

	"github.com/MrWong99/socialsync/pkg/provider/llm"
)

// OracleFallback implements [llm.Provider] with automatic failover across
// multiple LLM backends. Each backend has its own circuit breaker; when the
// primary fails or its breaker is open, the next healthy fallback is tried.
type OracleFallback struct {
	group *FallbackGroup[llm.Provider]
}

var _ llm.Provider = (*OracleFallback)(nil)

// NewOracleFallback creates an [OracleFallback] with primary as the
// preferred backend.
func NewOracleFallback(primary llm.Provider, primaryName string, cfg FallbackConfig) *OracleFallback {
	return &OracleFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional LLM provider as a fallback.
func (f *OracleFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// Complete sends the request to the first healthy backend and returns its
// response.
func (f *OracleFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// CountTokens delegates to the first healthy backend's token counter.
func (f *OracleFallback) CountTokens(messages []llm.Message) (int, error) {
	return ExecuteWithResult(f.group, func(p llm.Provider) (int, error) {
		return p.CountTokens(messages)
	})
}

// Capabilities returns the capabilities of the primary. This does not
// participate in failover because capabilities are static metadata.
func (f *OracleFallback) Capabilities() llm.ModelCapabilities {
	if len(f.group.entries) > 0 {
		return f.group.entries[0].value.Capabilities()
	}
	return llm.ModelCapabilities{}
}
