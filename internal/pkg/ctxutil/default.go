package ctxutil

import "context"

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// Detached keeps ctx values but drops its cancellation, for bookkeeping writes that
// must land after the caller has gone away.
func Detached(ctx context.Context) context.Context {
	return context.WithoutCancel(Default(ctx))
}
