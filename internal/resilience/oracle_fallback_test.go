package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/socialsync/pkg/provider/llm"
	llmmock "github.com/MrWong99/socialsync/pkg/provider/llm/mock"
)

func TestOracleFallback_Complete_PrimarySuccess(t *testing.T) {
	primary := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "hello from primary"}},
	}
	secondary := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "hello from secondary"}},
	}

	fb := NewOracleFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from primary" {
		t.Fatalf("content = %q, want 'hello from primary'", resp.Content)
	}
	if len(primary.CompleteCalls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.CompleteCalls))
	}
	if len(secondary.CompleteCalls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.CompleteCalls))
	}
}

func TestOracleFallback_Complete_Failover(t *testing.T) {
	primary := &llmmock.Provider{
		CompleteErr: errors.New("primary down"),
	}
	secondary := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "hello from secondary"}},
	}

	fb := NewOracleFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from secondary" {
		t.Fatalf("content = %q, want 'hello from secondary'", resp.Content)
	}
}

func TestOracleFallback_Complete_AllFail(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Provider{CompleteErr: errors.New("secondary down")}

	fb := NewOracleFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestOracleFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "ok"}},
	}

	fb := NewOracleFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: 0},
	})
	fb.AddFallback("secondary", secondary)

	// First call trips the primary's breaker, second should skip it.
	// ResetTimeout 0 falls back to the 30s default, so the breaker stays open.
	for i := 0; i < 2; i++ {
		if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
	if len(primary.CompleteCalls) != 1 {
		t.Fatalf("primary called %d times, want 1 (breaker should skip it)", len(primary.CompleteCalls))
	}
	if len(secondary.CompleteCalls) != 2 {
		t.Fatalf("secondary called %d times, want 2", len(secondary.CompleteCalls))
	}
}

func TestOracleFallback_Capabilities(t *testing.T) {
	primary := &llmmock.Provider{
		Caps: llm.ModelCapabilities{ContextWindow: 8192},
	}
	fb := NewOracleFallback(primary, "primary", FallbackConfig{})
	if got := fb.Capabilities().ContextWindow; got != 8192 {
		t.Fatalf("ContextWindow = %d, want 8192", got)
	}
}
