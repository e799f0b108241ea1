// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify that the dialogue controller sends
// correct CompletionRequests and to feed controlled responses without a live
// LLM backend. All fields are safe to set before calling any method; mutating
// them during a concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    CompleteResponses: []*llm.CompletionResponse{{Content: "Hello!"}},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/socialsync/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the CompletionRequest passed to Complete.
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// CompleteResponses is the sequence of responses returned by successive
	// Complete calls. When exhausted, the last entry is repeated. May be
	// empty (Complete returns nil, nil).
	CompleteResponses []*llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from every Complete
	// call instead of a response.
	CompleteErr error

	// CompleteErrOnCall, when > 0, makes only the Nth Complete call (1-based)
	// return CompleteErrOnce; other calls behave normally.
	CompleteErrOnCall int

	// CompleteErrOnce is the error returned on call number CompleteErrOnCall.
	CompleteErrOnce error

	// TokenCount is returned by CountTokens.
	TokenCount int

	// CountTokensErr, if non-nil, is returned as the error from CountTokens.
	CountTokensErr error

	// Caps is returned by Capabilities.
	Caps llm.ModelCapabilities

	// --- Call records (read after test) ---

	// CompleteCalls records every invocation of Complete in order.
	CompleteCalls []CompleteCall

	// CountTokensCalls counts the invocations of CountTokens.
	CountTokensCalls int
}

// Compile-time interface check.
var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns the next configured response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Deep-copy the message slice so later transcript mutation does not
	// retroactively change recorded calls.
	recorded := req
	recorded.Messages = append([]llm.Message(nil), req.Messages...)
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Ctx: ctx, Req: recorded})

	n := len(p.CompleteCalls)
	if p.CompleteErrOnCall > 0 && n == p.CompleteErrOnCall {
		return nil, p.CompleteErrOnce
	}
	if p.CompleteErr != nil {
		return nil, p.CompleteErr
	}
	if len(p.CompleteResponses) == 0 {
		return nil, nil
	}
	idx := n - 1
	if idx >= len(p.CompleteResponses) {
		idx = len(p.CompleteResponses) - 1
	}
	return p.CompleteResponses[idx], nil
}

// CountTokens records the call and returns TokenCount, CountTokensErr.
func (p *Provider) CountTokens(messages []llm.Message) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CountTokensCalls++
	return p.TokenCount, p.CountTokensErr
}

// Capabilities returns Caps.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Caps
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CompleteCalls = nil
	p.CountTokensCalls = 0
}
