package facade

import (
	"context"

	"github.com/onnwee/minimonday/backend/internal/circuitbreaker"
)

// NoOp invokes every fetch and write directly.
type NoOp struct{}

func (NoOp) FetchThroughCache(ctx context.Context, _, _ string, fetch FetchFunc) (any, error) {
	return fetch(ctx)
}

func (NoOp) Execute(ctx context.Context, _ string, op func(ctx context.Context) error) error {
	return op(ctx)
}

func (NoOp) Invalidate(string) int { return 0 }

func (NoOp) ResetBreaker(string) bool { return false }

func (NoOp) Stats() Stats {
	return Stats{Strategy: StrategyNoOp, Breakers: []circuitbreaker.Snapshot{}}
}
