package orchestrator

import "context"

type iterationKey struct{}

func withIteration(ctx context.Context, iteration int) context.Context {
	return context.WithValue(ctx, iterationKey{}, iteration)
}

// Iteration returns the 0-based iteration of the innermost loop running ctx
func Iteration(ctx context.Context) (int, bool) {
	if ctx == nil {
		return 0, false
	}
	iteration, ok := ctx.Value(iterationKey{}).(int)
	return iteration, ok
}
