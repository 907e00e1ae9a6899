// Package agent defines the invoker capability the runner executes cases
// through. Mock and production invokers are interchangeable; the core
// never inspects which one it holds.
package agent

import (
	"context"

	"github.com/piki9312/evalgate/internal/domain"
)

// Outcome is what one invocation produced. Err set means the invocation
// itself failed; the runner classifies it (deadline vs provider error).
type Outcome struct {
	Text        string         // raw agent output
	JSON        map[string]any // parsed object when the agent returned one, else nil
	TokensTotal int
	Cost        float64
	LatencyMs   float64 // provider-reported; runner falls back to wall time when 0
	Err         error
}

// Invoker maps a case input to a case output. Implementations must honor
// ctx cancellation and must never panic on malformed agent responses.
type Invoker interface {
	Invoke(ctx context.Context, c domain.Case) Outcome
}

// Func adapts a plain function to the Invoker interface.
type Func func(ctx context.Context, c domain.Case) Outcome

// Invoke implements Invoker.
func (f Func) Invoke(ctx context.Context, c domain.Case) Outcome {
	return f(ctx, c)
}
